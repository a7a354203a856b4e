package entities

import "time"

// PatientSummary is the profile-plus-activity view produced by the patient
// history provider for dashboards.
type PatientSummary struct {
	UserID             string    `json:"user_id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Role               string    `json:"role"`
	TotalConversations int       `json:"total_conversations"`
	TotalMessages      int       `json:"total_messages"`
	MemberSince        time.Time `json:"member_since"`
	Allergies          []string  `json:"allergies"`
	Specialty          string    `json:"specialty,omitempty"`
}

// SymptomFrequency counts how often a symptom appears in a patient's messages.
type SymptomFrequency struct {
	Symptom string `json:"symptom"`
	Count   int    `json:"count"`
}

// PatientPatterns is the per-patient symptom pattern analysis produced by the
// medical intelligence provider.
type PatientPatterns struct {
	UserID             string             `json:"user_id"`
	TotalConversations int                `json:"total_conversations"`
	TotalMessages      int                `json:"total_messages"`
	UniqueSymptoms     int                `json:"unique_symptoms"`
	MostCommonSymptoms []SymptomFrequency `json:"most_common_symptoms"`
	AnalyzedAt         time.Time          `json:"analysis_date"`
}

// PatientInsights merges the history summary with pattern analysis. Either
// half may be nil when the corresponding provider is unavailable.
type PatientInsights struct {
	History  *PatientSummary  `json:"history,omitempty"`
	Patterns *PatientPatterns `json:"patterns,omitempty"`
}
