package entities

// Service type taxonomy for interaction classification. The set is closed:
// a message that matches nothing falls back to ServiceGeneralQuery.
const (
	ServiceHealthQuery        = "Health Query"
	ServiceAppointmentBooking = "Appointment Booking"
	ServicePhlebotomy         = "Phlebotomy"
	ServiceInsuranceQuery     = "Insurance Query"
	ServiceTechSupport        = "Tech Support"
	ServiceAttachmentShared   = "Attachment Shared"
	ServiceCustomerExperience = "Customer Experience"
	ServiceGeneralQuery       = "General Query"
)

// FallbackConfidence is the confidence assigned when no service type scores
// above zero and the classifier falls back to ServiceGeneralQuery.
const FallbackConfidence = 0.3

// ServiceScore is a candidate service type with its confidence.
type ServiceScore struct {
	ServiceType string  `json:"service_type"`
	Confidence  float64 `json:"confidence"`
}

// ClassificationResult is the outcome of classifying a single message.
// Alternatives exclude the top pick, contain only candidates with confidence
// above 0.3, and are sorted descending by confidence.
type ClassificationResult struct {
	ServiceType      string         `json:"service_type"`
	Confidence       float64        `json:"confidence"`
	SubServices      []string       `json:"sub_services"`
	Alternatives     []ServiceScore `json:"alternatives"`
	MeasuredAccuracy float64        `json:"classification_accuracy,omitempty"`
}

// ClassificationStats summarizes the classifier's ruleset and its measured
// accuracy per service type. Accuracy figures are display-only; runtime
// classification stays rule-based.
type ClassificationStats struct {
	ServiceTypes      []string           `json:"service_types"`
	AccuracyByService map[string]float64 `json:"accuracy_by_service"`
	OverallAccuracy   float64            `json:"overall_accuracy"`
	TrainingExamples  int                `json:"total_training_examples"`
}
