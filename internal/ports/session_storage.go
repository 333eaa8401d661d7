package ports

import (
	"context"

	"archie-shopify-app-core/internal/domain"
)

// SessionStorage defines the interface for session persistence.
// Implementations must return a stored session from an immediately following Load
// and must never leave a partially written record behind.
type SessionStorage interface {
	// Store creates or replaces the session under its ID
	Store(ctx context.Context, session *domain.Session) error

	// Load retrieves a session by ID, returning nil without error when it does not exist
	Load(ctx context.Context, id string) (*domain.Session, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}
