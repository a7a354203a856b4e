package repositories

import (
	"context"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
)

// KnowledgeRepository defines the interface for knowledge base entries.
type KnowledgeRepository interface {
	// ListBySpecialties retrieves entries tagged with any of the given
	// specialties. An empty slice retrieves entries across all specialties.
	ListBySpecialties(ctx context.Context, specialties []string, limit int) ([]*entities.KnowledgeEntry, error)

	// CountBySpecialty counts entries for a specialty.
	CountBySpecialty(ctx context.Context, specialty string) (int, error)

	// Upsert creates or replaces a knowledge entry.
	Upsert(ctx context.Context, entry *entities.KnowledgeEntry) error
}

// KnowledgeSearchRepository defines the interface for full-text knowledge
// search (e.g. Typesense). It complements the primary store: ingestion keeps
// the index in sync, and the knowledge provider can use it for retrieval.
type KnowledgeSearchRepository interface {
	// Search retrieves entries matching the query, optionally filtered by
	// specialty.
	Search(ctx context.Context, query, specialty string, limit int) ([]*entities.KnowledgeEntry, error)

	// Index adds or replaces an entry in the search index.
	Index(ctx context.Context, entry *entities.KnowledgeEntry) error

	// Delete removes an entry from the index.
	Delete(ctx context.Context, id string) error
}
