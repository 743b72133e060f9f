// Package repository provides the data access layer for Galley.
// This file contains the repository bundle created by the driver packages.
package repository

import (
	"context"
)

// Repositories holds all repository instances.
type Repositories struct {
	User       UserRepository
	Token      TokenRepository
	Tag        CatalogRepository
	Ingredient CatalogRepository
	Recipe     RecipeRepository

	// Tx spans service-level operations across repositories.
	Tx TxManager
}

// DatabaseHealth is an interface for database health checks.
// Satisfied by both driver packages' DB types.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}
