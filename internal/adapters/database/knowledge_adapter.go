package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
	"github.com/aurahealth/aura-chat/backend/internal/domain/repositories"
	"github.com/aurahealth/aura-chat/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/aurahealth/aura-chat/backend/pkg/errors"
)

// KnowledgeAdapter implements KnowledgeRepository
type KnowledgeAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewKnowledgeAdapter creates a new knowledge adapter
func NewKnowledgeAdapter(client *postgres.Client) repositories.KnowledgeRepository {
	return &KnowledgeAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// ListBySpecialties retrieves entries tagged with any of the given
// specialties, newest first. An empty slice retrieves all entries.
func (a *KnowledgeAdapter) ListBySpecialties(ctx context.Context, specialties []string, limit int) ([]*entities.KnowledgeEntry, error) {
	ds := a.db.Select(
		"id", "title", "content", "specialty", "tags", "created_by", "created_at",
	).From("knowledge_entries").
		Order(goqu.I("created_at").Desc())
	if len(specialties) > 0 {
		ds = ds.Where(goqu.I("specialty").In(specialties))
	}
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build knowledge query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list knowledge entries", err)
	}
	defer rows.Close()

	entries := make([]*entities.KnowledgeEntry, 0)
	for rows.Next() {
		e := &entities.KnowledgeEntry{}
		var tags pq.StringArray
		var createdBy sql.NullString
		if err := rows.Scan(&e.ID, &e.Title, &e.Content, &e.Specialty, &tags, &createdBy, &e.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan knowledge entry", err)
		}
		e.Tags = tags
		e.CreatedBy = createdBy.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate knowledge entries", err)
	}
	return entries, nil
}

// CountBySpecialty counts entries for a specialty.
func (a *KnowledgeAdapter) CountBySpecialty(ctx context.Context, specialty string) (int, error) {
	query, args, err := a.db.Select(goqu.COUNT("*")).
		From("knowledge_entries").
		Where(goqu.Ex{"specialty": specialty}).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build knowledge count query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError("failed to count knowledge entries", err)
	}
	return count, nil
}

// Upsert creates or replaces a knowledge entry.
func (a *KnowledgeAdapter) Upsert(ctx context.Context, entry *entities.KnowledgeEntry) error {
	record := goqu.Record{
		"id":         entry.ID,
		"title":      entry.Title,
		"content":    entry.Content,
		"specialty":  entry.Specialty,
		"tags":       pq.Array(entry.Tags),
		"created_by": sql.NullString{String: entry.CreatedBy, Valid: entry.CreatedBy != ""},
		"created_at": entry.CreatedAt,
	}

	query, args, err := a.db.Insert("knowledge_entries").
		Rows(record).
		OnConflict(goqu.DoUpdate("id", record)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build knowledge upsert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to upsert knowledge entry", err)
	}
	return nil
}
