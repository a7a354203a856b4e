package entities

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ContextSource identifies the provider that produced a context record.
type ContextSource string

const (
	SourcePatientHistory        ContextSource = "patient_history"
	SourceServiceClassification ContextSource = "service_classification"
	SourceKnowledgeBase         ContextSource = "knowledge_base"
	SourceMedicalIntelligence   ContextSource = "medical_intelligence"
)

// AllContextSources returns every known context source.
func AllContextSources() []ContextSource {
	return []ContextSource{
		SourcePatientHistory,
		SourceServiceClassification,
		SourceKnowledgeBase,
		SourceMedicalIntelligence,
	}
}

// IsValid checks if the source is one of the defined constants.
func (s ContextSource) IsValid() bool {
	switch s {
	case SourcePatientHistory, SourceServiceClassification, SourceKnowledgeBase, SourceMedicalIntelligence:
		return true
	}
	return false
}

// ContextPayload is the provider-specific part of a context record. Each
// provider contributes its own concrete payload type.
type ContextPayload interface {
	// SummaryFragment renders a short natural-language sentence for the
	// aggregated context summary, or "" when there is nothing to say.
	SummaryFragment() string

	// Empty reports whether the payload carries no usable data.
	Empty() bool
}

// ContextRecord is the unit exchanged between a provider and the aggregator.
// RelevanceScore is always present and within [0,1]; a provider that found
// nothing still returns a record with an empty payload rather than omitting it.
type ContextRecord struct {
	Source         ContextSource  `json:"source"`
	RelevanceScore float64        `json:"relevance_score"`
	Timestamp      time.Time      `json:"timestamp"`
	Error          string         `json:"error,omitempty"`
	Payload        ContextPayload `json:"payload,omitempty"`
}

// UnmarshalJSON restores the concrete payload type based on the source tag,
// so cached records round-trip through JSON without losing their variant.
func (r *ContextRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Source         ContextSource   `json:"source"`
		RelevanceScore float64         `json:"relevance_score"`
		Timestamp      time.Time       `json:"timestamp"`
		Error          string          `json:"error,omitempty"`
		Payload        json.RawMessage `json:"payload,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Source = raw.Source
	r.RelevanceScore = raw.RelevanceScore
	r.Timestamp = raw.Timestamp
	r.Error = raw.Error
	r.Payload = nil

	if len(raw.Payload) == 0 || string(raw.Payload) == "null" {
		return nil
	}

	var payload ContextPayload
	switch raw.Source {
	case SourcePatientHistory:
		payload = &HistoryContext{}
	case SourceServiceClassification:
		payload = &ClassificationContext{}
	case SourceKnowledgeBase:
		payload = &KnowledgeContext{}
	case SourceMedicalIntelligence:
		payload = &IntelligenceContext{}
	default:
		return fmt.Errorf("unknown context source %q", raw.Source)
	}

	if err := json.Unmarshal(raw.Payload, payload); err != nil {
		return err
	}
	r.Payload = payload
	return nil
}

// AggregatedContext is the per-request output of the aggregation server.
type AggregatedContext struct {
	Timestamp      time.Time                        `json:"timestamp"`
	UserID         string                           `json:"user_id"`
	ConversationID string                           `json:"conversation_id,omitempty"`
	Contexts       map[ContextSource]*ContextRecord `json:"contexts"`
	TotalRelevance float64                          `json:"total_relevance"`
	ContextSummary string                           `json:"context_summary"`
}

// ConversationHeader is a compact view of a past conversation, embedded in
// the patient history payload.
type ConversationHeader struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Topic        string    `json:"topic"`
	MessageCount int       `json:"message_count"`
}

// HistoryContext is the patient history provider's payload.
type HistoryContext struct {
	PreviousConversations []ConversationHeader `json:"previous_conversations"`
	RecentSymptoms        []string             `json:"recent_symptoms"`
	MedicationHistory     []string             `json:"medication_history"`
	KnownConditions       []string             `json:"known_conditions"`
	AllergyAlerts         []string             `json:"allergy_alerts"`
	TotalConversations    int                  `json:"total_conversations"`
	TotalMessages         int                  `json:"total_messages"`
	HistorySummary        string               `json:"history_summary,omitempty"`
}

// SummaryFragment renders the history sentence for the context summary.
func (h *HistoryContext) SummaryFragment() string {
	if len(h.PreviousConversations) == 0 {
		return ""
	}
	symptoms := h.RecentSymptoms
	if len(symptoms) > 3 {
		symptoms = symptoms[:3]
	}
	return fmt.Sprintf("Patient History: %d previous conversations. Recent symptoms: %s",
		len(h.PreviousConversations), strings.Join(symptoms, ", "))
}

// Empty reports whether any history was found.
func (h *HistoryContext) Empty() bool {
	return len(h.PreviousConversations) == 0 && len(h.RecentSymptoms) == 0 &&
		len(h.MedicationHistory) == 0 && len(h.AllergyAlerts) == 0
}

// ClassificationContext is the service classification provider's payload.
type ClassificationContext struct {
	PredictedServiceType string         `json:"predicted_service_type"`
	Confidence           float64        `json:"confidence"`
	SubServices          []string       `json:"sub_services"`
	Alternatives         []ServiceScore `json:"alternative_classifications"`
	MeasuredAccuracy     float64        `json:"classification_accuracy"`
}

// SummaryFragment renders the classification sentence for the context summary.
func (c *ClassificationContext) SummaryFragment() string {
	if c.PredictedServiceType == "" {
		return ""
	}
	return fmt.Sprintf("Likely Service: %s (confidence: %.1f%%)", c.PredictedServiceType, c.Confidence*100)
}

// Empty reports whether a prediction was made.
func (c *ClassificationContext) Empty() bool {
	return c.PredictedServiceType == ""
}

// ScoredKnowledgeEntry pairs a knowledge entry with its relevance to the
// current query.
type ScoredKnowledgeEntry struct {
	Entry          *KnowledgeEntry `json:"entry"`
	RelevanceScore float64         `json:"relevance_score"`
}

// Relevance returns the entry's score for budget selection.
func (s ScoredKnowledgeEntry) Relevance() float64 {
	return s.RelevanceScore
}

// EstimatedTokens approximates the entry's context cost at four characters
// per token.
func (s ScoredKnowledgeEntry) EstimatedTokens() int {
	if s.Entry == nil {
		return 0
	}
	return (len(s.Entry.Title) + len(s.Entry.Content)) / 4
}

// KnowledgeContext is the knowledge base provider's payload.
type KnowledgeContext struct {
	Specialty         string                 `json:"specialty"`
	RelevantKnowledge []ScoredKnowledgeEntry `json:"relevant_knowledge"`
	TotalEntries      int                    `json:"total_entries"`
	MatchedEntries    int                    `json:"matched_entries"`
}

// SummaryFragment renders the knowledge sentence for the context summary.
func (k *KnowledgeContext) SummaryFragment() string {
	if len(k.RelevantKnowledge) == 0 {
		return ""
	}
	specialty := k.Specialty
	if specialty == "" {
		specialty = "general"
	}
	return fmt.Sprintf("Relevant Medical Knowledge: %d entries from %s specialty",
		len(k.RelevantKnowledge), specialty)
}

// Empty reports whether any relevant knowledge was found.
func (k *KnowledgeContext) Empty() bool {
	return len(k.RelevantKnowledge) == 0
}

// TreatmentPattern is an anonymized treatment mention with its observed
// frequency across assistant messages.
type TreatmentPattern struct {
	TreatmentContext string `json:"treatment_context"`
	Frequency        int    `json:"frequency"`
}

// SymptomCluster lists the symptoms most often co-occurring with a primary one.
type SymptomCluster struct {
	PrimarySymptom  string   `json:"primary_symptom"`
	RelatedSymptoms []string `json:"related_symptoms"`
}

// IntelligenceContext is the medical intelligence provider's payload. It only
// ever carries aggregate counts, never patient identifiers.
type IntelligenceContext struct {
	DetectedSymptoms      []string           `json:"detected_symptoms"`
	SimilarCases          int                `json:"similar_cases"`
	CommonTreatments      []TreatmentPattern `json:"common_treatments"`
	SymptomClusters       []SymptomCluster   `json:"symptom_clusters"`
	AverageResolutionTime string             `json:"average_resolution_time,omitempty"`
	Note                  string             `json:"note,omitempty"`
}

// SummaryFragment renders the intelligence sentence for the context summary.
func (m *IntelligenceContext) SummaryFragment() string {
	if m.SimilarCases == 0 {
		return ""
	}
	treatments := make([]string, 0, 2)
	for i, t := range m.CommonTreatments {
		if i >= 2 {
			break
		}
		treatments = append(treatments, t.TreatmentContext)
	}
	return fmt.Sprintf("Similar Cases: %d patients with similar symptoms. Common treatments: %s",
		m.SimilarCases, strings.Join(treatments, ", "))
}

// Empty reports whether any pattern data was found.
func (m *IntelligenceContext) Empty() bool {
	return m.SimilarCases == 0 && len(m.DetectedSymptoms) == 0
}
