package search

import (
	"context"
	"fmt"
	"time"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
	"github.com/aurahealth/aura-chat/backend/internal/domain/repositories"
	tsclient "github.com/aurahealth/aura-chat/backend/internal/infrastructure/clients/typesense"
)

const defaultSearchLimit = 20

// KnowledgeTypesenseAdapter implements full-text knowledge search over
// Typesense. The primary store stays in Postgres; this index exists for
// query-driven retrieval and is kept in sync by the ingestion service.
type KnowledgeTypesenseAdapter struct {
	client *tsclient.Client
}

var _ repositories.KnowledgeSearchRepository = (*KnowledgeTypesenseAdapter)(nil)

// NewKnowledgeTypesenseAdapter creates a new knowledge search adapter.
func NewKnowledgeTypesenseAdapter(client *tsclient.Client) *KnowledgeTypesenseAdapter {
	return &KnowledgeTypesenseAdapter{client: client}
}

// Search retrieves knowledge entries matching the query, most relevant first.
// An empty specialty searches across the whole index.
func (a *KnowledgeTypesenseAdapter) Search(ctx context.Context, query, specialty string, limit int) ([]*entities.KnowledgeEntry, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if query == "" {
		query = "*"
	}

	searchParams := &api.SearchCollectionParams{
		Q:       pointer.String(query),
		QueryBy: pointer.String("title,content,tags"),
		PerPage: pointer.Int(limit),
	}
	if specialty != "" {
		searchParams.FilterBy = pointer.String(fmt.Sprintf("specialty:=%s", specialty))
	}

	result, err := a.client.Client().Collection(a.client.Collection()).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge index: %w", err)
	}
	if result.Hits == nil {
		return []*entities.KnowledgeEntry{}, nil
	}

	entries := make([]*entities.KnowledgeEntry, 0, len(*result.Hits))
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		entries = append(entries, documentToEntry(*hit.Document))
	}
	return entries, nil
}

// Index adds or replaces a knowledge entry in the search index.
func (a *KnowledgeTypesenseAdapter) Index(ctx context.Context, entry *entities.KnowledgeEntry) error {
	document := map[string]interface{}{
		"id":         entry.ID,
		"title":      entry.Title,
		"content":    entry.Content,
		"specialty":  entry.Specialty,
		"tags":       entry.Tags,
		"created_by": entry.CreatedBy,
		"created_at": entry.CreatedAt.Unix(),
	}

	_, err := a.client.Client().Collection(a.client.Collection()).Documents().Upsert(ctx, document)
	if err != nil {
		return fmt.Errorf("failed to index knowledge entry: %w", err)
	}
	return nil
}

// Delete removes a knowledge entry from the index.
func (a *KnowledgeTypesenseAdapter) Delete(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(a.client.Collection()).Document(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge entry from index: %w", err)
	}
	return nil
}

// documentToEntry reconstructs an entry from the raw Typesense document.
// Typesense hands back map[string]interface{}, so every field is cast
// defensively and missing fields fall back to zero values.
func documentToEntry(doc map[string]interface{}) *entities.KnowledgeEntry {
	entry := &entities.KnowledgeEntry{
		ID:        stringField(doc, "id"),
		Title:     stringField(doc, "title"),
		Content:   stringField(doc, "content"),
		Specialty: stringField(doc, "specialty"),
		CreatedBy: stringField(doc, "created_by"),
	}

	if raw, ok := doc["tags"].([]interface{}); ok {
		tags := make([]string, 0, len(raw))
		for _, t := range raw {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
		entry.Tags = tags
	}

	if ts, ok := doc["created_at"].(float64); ok {
		entry.CreatedAt = time.Unix(int64(ts), 0).UTC()
	}

	return entry
}

func stringField(doc map[string]interface{}, key string) string {
	if s, ok := doc[key].(string); ok {
		return s
	}
	return ""
}
