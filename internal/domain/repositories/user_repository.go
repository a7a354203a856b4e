package repositories

import (
	"context"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
)

// UserRepository defines the interface for user profile operations.
type UserRepository interface {
	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*entities.User, error)

	// Upsert creates or replaces a user profile.
	Upsert(ctx context.Context, user *entities.User) error
}
