package repositories

import (
	"context"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
)

// ConversationRepository defines the interface for conversation data operations.
// Any concrete store offering filtered finds with sort/limit, counts and
// upserts satisfies the contract; the context layer never depends on a
// particular engine.
type ConversationRepository interface {
	// ListByUser retrieves the user's conversations, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*entities.Conversation, error)

	// CountByUser counts the user's conversations.
	CountByUser(ctx context.Context, userID string) (int, error)

	// Upsert creates or replaces a conversation.
	Upsert(ctx context.Context, conversation *entities.Conversation) error
}
