package providers

import (
	"context"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
)

// ContextRequest carries the caller's message and identity into a provider.
type ContextRequest struct {
	UserID         string
	Message        string
	ConversationID string
}

// ContextProvider produces a scored, typed contribution to the aggregated
// context for a user/message pair.
type ContextProvider interface {
	// Name returns the provider's source tag.
	Name() entities.ContextSource

	// Initialize prepares the provider's backing-store handles. It is
	// idempotent; a failure leaves the provider registered but inert.
	Initialize(ctx context.Context) error

	// GetContext fetches the provider's contribution. It never fails: any
	// internal error is recovered into a record with a zero relevance score
	// and a populated Error field, so one provider's failure cannot block
	// aggregation.
	GetContext(ctx context.Context, req ContextRequest) *entities.ContextRecord
}

// ShutdownHook is implemented by providers that hold resources needing
// best-effort cleanup on server shutdown.
type ShutdownHook interface {
	Shutdown(ctx context.Context) error
}
