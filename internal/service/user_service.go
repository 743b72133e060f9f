package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/galley-app/galley/internal/domain"
	"github.com/galley-app/galley/internal/repository"
)

// UserService handles registration, authentication and profile management.
type UserService struct {
	userRepo repository.UserRepository
	logger   zerolog.Logger

	minPasswordLength int
	bcryptCost        int
}

// UserServiceConfig contains user service settings.
type UserServiceConfig struct {
	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength int

	// BcryptCost is the bcrypt work factor for password hashing.
	BcryptCost int
}

// NewUserService creates a new UserService.
func NewUserService(
	userRepo repository.UserRepository,
	cfg UserServiceConfig,
	logger zerolog.Logger,
) *UserService {
	if cfg.MinPasswordLength <= 0 {
		cfg.MinPasswordLength = 5
	}
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		userRepo:          userRepo,
		logger:            logger.With().Str("service", "user").Logger(),
		minPasswordLength: cfg.MinPasswordLength,
		bcryptCost:        cfg.BcryptCost,
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// RegisterInput contains the data needed to register a user.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// RegisterOutput contains the result of registering a user.
type RegisterOutput struct {
	User *domain.User
}

// AuthenticateInput contains login credentials.
type AuthenticateInput struct {
	Email    string
	Password string
}

// AuthenticateOutput contains the authenticated user.
type AuthenticateOutput struct {
	User *domain.User
}

// UpdateProfileInput contains the fields to change on a profile.
// Nil pointers leave the corresponding field untouched.
type UpdateProfileInput struct {
	UserID   int64
	Email    *string
	Name     *string
	Password *string
}

// UpdateProfileOutput contains the updated user.
type UpdateProfileOutput struct {
	User *domain.User
}

// CreateSuperuserInput contains the data needed to create a superuser.
type CreateSuperuserInput struct {
	Email    string
	Password string
	Name     string
}

// =============================================================================
// Service Methods
// =============================================================================

// Register creates a new user account.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*RegisterOutput, error) {
	email, err := s.validateEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := s.validatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := domain.NewUser(email, input.Name, hash)
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, err
		}
		s.logger.Error().Err(err).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("email", user.Email).
		Msg("user registered")

	return &RegisterOutput{User: user}, nil
}

// Authenticate verifies credentials and returns the user.
// All failure modes collapse into ErrInvalidCredentials so callers cannot
// probe which accounts exist.
func (s *UserService) Authenticate(ctx context.Context, input AuthenticateInput) (*AuthenticateOutput, error) {
	email := domain.NormalizeEmail(input.Email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Msg("failed to look up user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if !user.CanAuthenticate() {
		return nil, domain.ErrInvalidCredentials
	}

	return &AuthenticateOutput{User: user}, nil
}

// GetProfile returns a user by ID.
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// UpdateProfile applies a partial update to the user's own profile.
func (s *UserService) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*UpdateProfileOutput, error) {
	user, err := s.GetProfile(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email, err := s.validateEmail(*input.Email)
		if err != nil {
			return nil, err
		}
		user.Email = email
	}
	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Password != nil {
		if err := s.validatePassword(*input.Password); err != nil {
			return nil, err
		}
		hash, err := s.hashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) || errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to update user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("profile updated")

	return &UpdateProfileOutput{User: user}, nil
}

// CreateSuperuser creates a staff superuser account. Used by the admin CLI.
func (s *UserService) CreateSuperuser(ctx context.Context, input CreateSuperuserInput) (*domain.User, error) {
	out, err := s.Register(ctx, RegisterInput(input))
	if err != nil {
		return nil, err
	}

	user := out.User
	user.IsStaff = true
	user.IsSuperuser = true
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to promote superuser")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("email", user.Email).
		Msg("superuser created")

	return user, nil
}

// SetActive enables or disables an account. Used by the admin CLI.
func (s *UserService) SetActive(ctx context.Context, userID int64, active bool) error {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}

	user.IsActive = active
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to set user active state")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return nil
}

// ListUsers returns all users with pagination. Used by the admin CLI.
func (s *UserService) ListUsers(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	result, err := s.userRepo.List(ctx, opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}

// =============================================================================
// Helpers
// =============================================================================

// validateEmail normalizes and sanity-checks an email address.
func (s *UserService) validateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", domain.ErrEmailRequired
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", ErrInvalidEmail
	}

	return domain.NormalizeEmail(email), nil
}

// validatePassword enforces the minimum length.
func (s *UserService) validatePassword(password string) error {
	if len(password) < s.minPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrInvalidPassword, s.minPasswordLength)
	}
	return nil
}

// hashPassword hashes a password with bcrypt.
func (s *UserService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return "", fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return string(hash), nil
}
