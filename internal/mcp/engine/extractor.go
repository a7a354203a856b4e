// Package engine holds the pure context-processing primitives shared by all
// context providers: medical entity extraction, relevance scoring and
// token-budgeted selection.
package engine

import (
	"regexp"
	"strings"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
)

// categoryPatterns binds an entity category to its ordered pattern set. The
// table is data-driven so the taxonomy can grow without touching extraction
// logic.
type categoryPatterns struct {
	category entities.EntityCategory
	patterns []*regexp.Regexp
}

// defaultPatternTable returns the built-in category → pattern mapping. All
// patterns are case-insensitive and matched non-overlapping.
func defaultPatternTable() []categoryPatterns {
	compile := func(exprs ...string) []*regexp.Regexp {
		out := make([]*regexp.Regexp, len(exprs))
		for i, e := range exprs {
			out[i] = regexp.MustCompile(`(?i)` + e)
		}
		return out
	}

	return []categoryPatterns{
		{entities.CategorySymptoms, compile(
			`\b(pain|ache|hurt|sore|tender|burning|throbbing)\b`,
			`\b(fever|temperature|chills|sweats)\b`,
			`\b(nausea|vomiting|dizzy|dizziness|fatigue|tired|weakness)\b`,
			`\b(headache|migraine|backache|stomachache)\b`,
			`\b(cough|sneezing|runny nose|congestion|shortness of breath)\b`,
			`\b(swelling|rash|itching|bleeding|numbness)\b`,
		)},
		{entities.CategoryMedications, compile(
			`\b(aspirin|ibuprofen|tylenol|acetaminophen|advil|motrin)\b`,
			`\b(antibiotic|penicillin|amoxicillin|prescription|medication|pills|tablets)\b`,
			`\b(insulin|metformin|lisinopril|atorvastatin|omeprazole)\b`,
		)},
		{entities.CategoryConditions, compile(
			`\b(diabetes|hypertension|asthma|arthritis|migraine disorder)\b`,
			`\b(infection|flu|pneumonia|bronchitis|anemia)\b`,
			`\b(depression|anxiety|insomnia)\b`,
		)},
		{entities.CategoryBodyParts, compile(
			`\b(head|neck|shoulder|arm|elbow|wrist|hand|finger|thumb)\b`,
			`\b(chest|back|spine|stomach|abdomen|hip|leg|knee|ankle|foot|toe)\b`,
			`\b(heart|lung|liver|kidney|brain|eye|ear|nose|throat|mouth)\b`,
		)},
		{entities.CategorySeverity, compile(
			`\b(mild|moderate|severe|intense|unbearable|excruciating)\b`,
			`\b([1-9]|10)\s*(?:out\s*of\s*10|/10)\b`,
		)},
		{entities.CategoryDuration, compile(
			`\b\d+\s*(?:minute|hour|day|week|month|year)s?\b`,
			`\b(?:since|for)\s+(?:yesterday|last\s+\w+|this\s+\w+)\b`,
			`\b(yesterday|today|last\s*night|this\s*morning|few\s*days)\b`,
		)},
		{entities.CategoryFrequency, compile(
			`\b(always|never|sometimes|often|rarely|occasionally)\b`,
			`\b(?:once|twice|three\s*times|several\s*times)\s*(?:a\s*)?(?:day|week|month)\b`,
			`\b(constant|intermittent|periodic|sporadic)\b`,
		)},
		{entities.CategoryTimeReferences, compile(
			`\b\d+\s*(?:day|week|month|year)s?\s*ago\b`,
			`\b(today|yesterday|last\s+\w+|this\s+\w+)\b`,
		)},
	}
}

// EntityExtractor extracts medical entities from free text using an ordered
// regex/keyword table. It performs no I/O and is safe for concurrent use.
type EntityExtractor struct {
	table []categoryPatterns
}

// NewEntityExtractor creates an extractor with the built-in pattern table.
func NewEntityExtractor() *EntityExtractor {
	return &EntityExtractor{table: defaultPatternTable()}
}

// Extract returns the entities found in text. Every category is present in
// the result, possibly empty. Identical input always yields identical output;
// matches are deduplicated case-insensitively keeping the first-seen casing.
func (e *EntityExtractor) Extract(text string) entities.ExtractedEntities {
	out := entities.NewExtractedEntities()
	if strings.TrimSpace(text) == "" {
		return out
	}

	for _, cp := range e.table {
		seen := make(map[string]struct{})
		matches := out[cp.category]
		for _, re := range cp.patterns {
			for _, m := range re.FindAllString(text, -1) {
				key := strings.ToLower(strings.TrimSpace(m))
				if key == "" {
					continue
				}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				matches = append(matches, strings.TrimSpace(m))
			}
		}
		out[cp.category] = matches
	}

	return out
}
