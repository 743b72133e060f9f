package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/galley-app/galley/internal/domain"
	"github.com/galley-app/galley/internal/repository"
)

// CatalogService handles tag or ingredient operations. One instance exists
// per kind, wrapping the matching repository; the behavior is identical.
type CatalogService struct {
	repo   repository.CatalogRepository
	logger zerolog.Logger
}

// NewCatalogService creates a catalog service for the repository's kind.
func NewCatalogService(repo repository.CatalogRepository, logger zerolog.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		logger: logger.With().Str("service", string(repo.Kind())).Logger(),
	}
}

// Kind reports which catalog this service serves.
func (s *CatalogService) Kind() domain.CatalogKind {
	return s.repo.Kind()
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// ListCatalogInput contains the data needed to list catalog items.
type ListCatalogInput struct {
	UserID       int64
	AssignedOnly bool
}

// ListCatalogOutput contains the listed items.
type ListCatalogOutput struct {
	Items []*domain.CatalogItem
}

// CreateCatalogItemInput contains the data needed to create an item.
type CreateCatalogItemInput struct {
	UserID int64
	Name   string
}

// RenameCatalogItemInput contains the data needed to rename an item.
type RenameCatalogItemInput struct {
	UserID int64
	ID     int64
	Name   string
}

// DeleteCatalogItemInput contains the data needed to delete an item.
type DeleteCatalogItemInput struct {
	UserID int64
	ID     int64
}

// =============================================================================
// Service Methods
// =============================================================================

// List returns the owner's items, reverse alphabetical by name.
func (s *CatalogService) List(ctx context.Context, input ListCatalogInput) (*ListCatalogOutput, error) {
	items, err := s.repo.ListByUser(ctx, input.UserID, repository.CatalogListOptions{
		AssignedOnly: input.AssignedOnly,
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", input.UserID).Msg("failed to list items")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if items == nil {
		items = []*domain.CatalogItem{}
	}

	return &ListCatalogOutput{Items: items}, nil
}

// Create creates a new item for the owner.
func (s *CatalogService) Create(ctx context.Context, input CreateCatalogItemInput) (*domain.CatalogItem, error) {
	if err := domain.ValidateCatalogName(input.Name); err != nil {
		return nil, err
	}

	item := domain.NewCatalogItem(input.UserID, input.Name)
	if err := s.repo.Create(ctx, item); err != nil {
		if errors.Is(err, domain.ErrCatalogItemExists) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("user_id", input.UserID).Msg("failed to create item")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return item, nil
}

// Get returns an item by ID, scoped to the owner. Items owned by other
// users are indistinguishable from missing ones.
func (s *CatalogService) Get(ctx context.Context, userID, id int64) (*domain.CatalogItem, error) {
	item, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, domain.ErrCatalogItemNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("id", id).Msg("failed to get item")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return item, nil
}

// Rename changes an item's name.
func (s *CatalogService) Rename(ctx context.Context, input RenameCatalogItemInput) (*domain.CatalogItem, error) {
	if err := domain.ValidateCatalogName(input.Name); err != nil {
		return nil, err
	}

	if err := s.repo.Rename(ctx, input.UserID, input.ID, input.Name); err != nil {
		if errors.Is(err, domain.ErrCatalogItemNotFound) || errors.Is(err, domain.ErrCatalogItemExists) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("id", input.ID).Msg("failed to rename item")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return s.Get(ctx, input.UserID, input.ID)
}

// Delete removes an item and detaches it from all recipes.
func (s *CatalogService) Delete(ctx context.Context, input DeleteCatalogItemInput) error {
	if err := s.repo.Delete(ctx, input.UserID, input.ID); err != nil {
		if errors.Is(err, domain.ErrCatalogItemNotFound) {
			return err
		}
		s.logger.Error().Err(err).Int64("id", input.ID).Msg("failed to delete item")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", input.UserID).
		Int64("id", input.ID).
		Msg("item deleted")

	return nil
}
