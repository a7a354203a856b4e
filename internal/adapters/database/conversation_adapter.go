// Package database implements the domain repositories over PostgreSQL using
// goqu for query building.
package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
	"github.com/aurahealth/aura-chat/backend/internal/domain/repositories"
	"github.com/aurahealth/aura-chat/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/aurahealth/aura-chat/backend/pkg/errors"
)

// ConversationAdapter implements ConversationRepository
type ConversationAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewConversationAdapter creates a new conversation adapter
func NewConversationAdapter(client *postgres.Client) repositories.ConversationRepository {
	return &ConversationAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// ListByUser retrieves the user's conversations, newest first. A limit of
// zero or less returns all of them.
func (a *ConversationAdapter) ListByUser(ctx context.Context, userID string, limit int) ([]*entities.Conversation, error) {
	ds := a.db.Select(
		"id", "user_id", "topic", "message_count", "created_at", "updated_at",
	).From("conversations").
		Where(goqu.Ex{"user_id": userID}).
		Order(goqu.I("created_at").Desc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build conversation query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list conversations", err)
	}
	defer rows.Close()

	conversations := make([]*entities.Conversation, 0)
	for rows.Next() {
		c := &entities.Conversation{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Topic, &c.MessageCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan conversation", err)
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate conversations", err)
	}
	return conversations, nil
}

// CountByUser counts the user's conversations.
func (a *ConversationAdapter) CountByUser(ctx context.Context, userID string) (int, error) {
	query, args, err := a.db.Select(goqu.COUNT("*")).
		From("conversations").
		Where(goqu.Ex{"user_id": userID}).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build conversation count query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError("failed to count conversations", err)
	}
	return count, nil
}

// Upsert creates or replaces a conversation.
func (a *ConversationAdapter) Upsert(ctx context.Context, conversation *entities.Conversation) error {
	conversation.UpdatedAt = time.Now()

	record := goqu.Record{
		"id":            conversation.ID,
		"user_id":       conversation.UserID,
		"topic":         conversation.Topic,
		"message_count": conversation.MessageCount,
		"created_at":    conversation.CreatedAt,
		"updated_at":    conversation.UpdatedAt,
	}

	query, args, err := a.db.Insert("conversations").
		Rows(record).
		OnConflict(goqu.DoUpdate("id", record)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build conversation upsert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to upsert conversation", err)
	}
	return nil
}
