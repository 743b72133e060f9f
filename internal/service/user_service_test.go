package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/galley-app/galley/internal/domain"
)

func newTestUserService(repo *mockUserRepository) *UserService {
	return NewUserService(repo, UserServiceConfig{
		MinPasswordLength: 5,
		BcryptCost:        bcrypt.MinCost,
	}, zerolog.Nop())
}

func TestUserService_Register(t *testing.T) {
	tests := []struct {
		name      string
		input     RegisterInput
		wantErr   error
		wantEmail string
		setupRepo func(*mockUserRepository)
	}{
		{
			name: "success",
			input: RegisterInput{
				Email:    "test@example.com",
				Password: "testpass123",
				Name:     "Test Name",
			},
			wantEmail: "test@example.com",
		},
		{
			name: "email domain normalized",
			input: RegisterInput{
				Email:    "Test@EXAMPLE.COM",
				Password: "testpass123",
			},
			wantEmail: "Test@example.com",
		},
		{
			name: "password too short",
			input: RegisterInput{
				Email:    "test@example.com",
				Password: "pw",
			},
			wantErr: ErrInvalidPassword,
		},
		{
			name: "empty email",
			input: RegisterInput{
				Email:    "",
				Password: "testpass123",
			},
			wantErr: domain.ErrEmailRequired,
		},
		{
			name: "malformed email",
			input: RegisterInput{
				Email:    "not-an-email",
				Password: "testpass123",
			},
			wantErr: ErrInvalidEmail,
		},
		{
			name: "duplicate email",
			input: RegisterInput{
				Email:    "taken@example.com",
				Password: "testpass123",
			},
			wantErr: domain.ErrUserAlreadyExists,
			setupRepo: func(m *mockUserRepository) {
				m.users[1] = &domain.User{ID: 1, Email: "taken@example.com"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockUserRepository()
			if tt.setupRepo != nil {
				tt.setupRepo(repo)
			}
			svc := newTestUserService(repo)

			out, err := svc.Register(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if out.User.Email != tt.wantEmail {
				t.Errorf("expected email %q, got %q", tt.wantEmail, out.User.Email)
			}
			if out.User.PasswordHash == tt.input.Password {
				t.Error("password stored in plaintext")
			}
			if err := bcrypt.CompareHashAndPassword([]byte(out.User.PasswordHash), []byte(tt.input.Password)); err != nil {
				t.Errorf("stored hash does not match password: %v", err)
			}
			if !out.User.IsActive {
				t.Error("new users should be active")
			}
		})
	}
}

func TestUserService_Authenticate(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestUserService(repo)

	if _, err := svc.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "testpass123",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
		setup    func()
	}{
		{
			name:     "success",
			email:    "user@example.com",
			password: "testpass123",
		},
		{
			name:     "case-insensitive domain",
			email:    "user@EXAMPLE.com",
			password: "testpass123",
		},
		{
			name:     "wrong password",
			email:    "user@example.com",
			password: "wrongpass",
			wantErr:  domain.ErrInvalidCredentials,
		},
		{
			name:     "unknown email",
			email:    "nobody@example.com",
			password: "testpass123",
			wantErr:  domain.ErrInvalidCredentials,
		},
		{
			name:     "inactive user",
			email:    "user@example.com",
			password: "testpass123",
			wantErr:  domain.ErrInvalidCredentials,
			setup: func() {
				repo.users[1].IsActive = false
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo.users[1].IsActive = true
			if tt.setup != nil {
				tt.setup()
			}

			out, err := svc.Authenticate(context.Background(), AuthenticateInput{
				Email:    tt.email,
				Password: tt.password,
			})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.User.Email != "user@example.com" {
				t.Errorf("unexpected user %q", out.User.Email)
			}
		})
	}
}

func TestUserService_UpdateProfile(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestUserService(repo)

	out, err := svc.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "testpass123",
		Name:     "Old Name",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	userID := out.User.ID
	oldHash := out.User.PasswordHash

	// Partial update: only the name changes.
	newName := "New Name"
	updated, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
		UserID: userID,
		Name:   &newName,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.User.Name != newName {
		t.Errorf("expected name %q, got %q", newName, updated.User.Name)
	}
	if updated.User.Email != "user@example.com" {
		t.Errorf("email changed unexpectedly: %q", updated.User.Email)
	}
	if updated.User.PasswordHash != oldHash {
		t.Error("password hash changed without a password update")
	}

	// Password update rehashes.
	newPassword := "newpass456"
	updated, err = svc.UpdateProfile(context.Background(), UpdateProfileInput{
		UserID:   userID,
		Password: &newPassword,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.User.PasswordHash == oldHash {
		t.Error("password hash not updated")
	}
	if _, err := svc.Authenticate(context.Background(), AuthenticateInput{
		Email:    "user@example.com",
		Password: newPassword,
	}); err != nil {
		t.Errorf("authenticate with new password: %v", err)
	}

	// Short password rejected.
	short := "pw"
	if _, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
		UserID:   userID,
		Password: &short,
	}); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestUserService_PasswordErrorCarriesConfiguredMinimum(t *testing.T) {
	svc := NewUserService(newMockUserRepository(), UserServiceConfig{
		MinPasswordLength: 8,
		BcryptCost:        bcrypt.MinCost,
	}, zerolog.Nop())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "user@example.com",
		Password: "short",
	})
	if !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	if !strings.Contains(err.Error(), "8 characters") {
		t.Errorf("error message does not carry the configured minimum: %q", err.Error())
	}
}

func TestUserService_CreateSuperuser(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestUserService(repo)

	user, err := svc.CreateSuperuser(context.Background(), CreateSuperuserInput{
		Email:    "admin@example.com",
		Password: "adminpass",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !user.IsStaff || !user.IsSuperuser {
		t.Errorf("expected staff+superuser flags, got staff=%t superuser=%t", user.IsStaff, user.IsSuperuser)
	}
}
