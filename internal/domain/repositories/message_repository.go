package repositories

import (
	"context"
	"time"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
)

// MessageQuery defines filters for message lookups. Zero values mean
// "no filter" for that field.
type MessageQuery struct {
	ConversationIDs []string
	// Contains matches messages whose content includes the substring,
	// case-insensitively.
	Contains string
	Role     entities.MessageRole
	Since    time.Time
	Limit    int
}

// MessageRepository defines the interface for message data operations.
type MessageRepository interface {
	// ListRecent retrieves matching messages, newest first.
	ListRecent(ctx context.Context, query MessageQuery) ([]*entities.Message, error)

	// Count counts matching messages.
	Count(ctx context.Context, query MessageQuery) (int, error)

	// Upsert creates or replaces a message.
	Upsert(ctx context.Context, message *entities.Message) error
}
