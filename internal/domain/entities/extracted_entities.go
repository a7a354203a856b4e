package entities

// EntityCategory names a class of medical entity recognized by the extractor.
type EntityCategory string

const (
	CategorySymptoms       EntityCategory = "symptoms"
	CategoryMedications    EntityCategory = "medications"
	CategoryConditions     EntityCategory = "conditions"
	CategoryBodyParts      EntityCategory = "body_parts"
	CategorySeverity       EntityCategory = "severity"
	CategoryDuration       EntityCategory = "duration"
	CategoryFrequency      EntityCategory = "frequency"
	CategoryTimeReferences EntityCategory = "time_references"
)

// EntityCategories returns all categories in their canonical extraction order.
func EntityCategories() []EntityCategory {
	return []EntityCategory{
		CategorySymptoms,
		CategoryMedications,
		CategoryConditions,
		CategoryBodyParts,
		CategorySeverity,
		CategoryDuration,
		CategoryFrequency,
		CategoryTimeReferences,
	}
}

// ExtractedEntities maps each entity category to its matched strings. Every
// category is always present; matches are deduplicated case-insensitively
// with the first-seen casing preserved. Order within a category follows match
// position, but callers must not rely on it.
type ExtractedEntities map[EntityCategory][]string

// NewExtractedEntities returns a result with every category present and empty.
func NewExtractedEntities() ExtractedEntities {
	out := make(ExtractedEntities, len(EntityCategories()))
	for _, c := range EntityCategories() {
		out[c] = []string{}
	}
	return out
}

// Symptoms returns the symptom matches.
func (e ExtractedEntities) Symptoms() []string { return e[CategorySymptoms] }

// Medications returns the medication matches.
func (e ExtractedEntities) Medications() []string { return e[CategoryMedications] }

// Conditions returns the condition matches.
func (e ExtractedEntities) Conditions() []string { return e[CategoryConditions] }
