package entities

import "time"

// DefaultSpecialty is the catch-all specialty used when no specific one is
// detected in a message and as the shared bucket for general guidance.
const DefaultSpecialty = "General Medicine"

// KnowledgeEntry is a doctor-curated knowledge base article.
type KnowledgeEntry struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	Specialty string    `json:"specialty" db:"specialty"`
	Tags      []string  `json:"tags" db:"-"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SpecialtyGuidelines groups a specialty's knowledge entries by tag, for the
// doctor-facing guideline view.
type SpecialtyGuidelines struct {
	Specialty            string                       `json:"specialty"`
	TotalEntries         int                          `json:"total_entries"`
	Categories           []string                     `json:"categories"`
	GuidelinesByCategory map[string][]*KnowledgeEntry `json:"guidelines_by_category"`
}
