package database

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
	"github.com/aurahealth/aura-chat/backend/internal/domain/repositories"
	"github.com/aurahealth/aura-chat/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/aurahealth/aura-chat/backend/pkg/errors"
)

// MessageAdapter implements MessageRepository
type MessageAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewMessageAdapter creates a new message adapter
func NewMessageAdapter(client *postgres.Client) repositories.MessageRepository {
	return &MessageAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// ListRecent retrieves matching messages, newest first.
func (a *MessageAdapter) ListRecent(ctx context.Context, q repositories.MessageQuery) ([]*entities.Message, error) {
	ds := a.db.Select(
		"id", "conversation_id", "role", "content", "timestamp",
	).From("messages").
		Where(messageConditions(q)...).
		Order(goqu.I("timestamp").Desc())
	if q.Limit > 0 {
		ds = ds.Limit(uint(q.Limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build message query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list messages", err)
	}
	defer rows.Close()

	messages := make([]*entities.Message, 0)
	for rows.Next() {
		m := &entities.Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, apperrors.NewInternalError("failed to scan message", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate messages", err)
	}
	return messages, nil
}

// Count counts matching messages.
func (a *MessageAdapter) Count(ctx context.Context, q repositories.MessageQuery) (int, error) {
	query, args, err := a.db.Select(goqu.COUNT("*")).
		From("messages").
		Where(messageConditions(q)...).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build message count query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError("failed to count messages", err)
	}
	return count, nil
}

// Upsert creates or replaces a message.
func (a *MessageAdapter) Upsert(ctx context.Context, message *entities.Message) error {
	record := goqu.Record{
		"id":              message.ID,
		"conversation_id": message.ConversationID,
		"role":            string(message.Role),
		"content":         message.Content,
		"timestamp":       message.Timestamp,
	}

	query, args, err := a.db.Insert("messages").
		Rows(record).
		OnConflict(goqu.DoUpdate("id", record)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build message upsert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to upsert message", err)
	}
	return nil
}

func messageConditions(q repositories.MessageQuery) []exp.Expression {
	conds := make([]exp.Expression, 0, 4)
	if len(q.ConversationIDs) > 0 {
		conds = append(conds, goqu.I("conversation_id").In(q.ConversationIDs))
	}
	if q.Role != "" {
		conds = append(conds, goqu.Ex{"role": string(q.Role)})
	}
	if !q.Since.IsZero() {
		conds = append(conds, goqu.I("timestamp").Gte(q.Since))
	}
	if q.Contains != "" {
		conds = append(conds, goqu.I("content").ILike("%"+q.Contains+"%"))
	}
	return conds
}
