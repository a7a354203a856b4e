package evaluation

import (
	"time"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
)

// ValidServiceTypes returns the closed service taxonomy a golden label may
// use.
func ValidServiceTypes() []string {
	return []string{
		entities.ServiceHealthQuery,
		entities.ServiceAppointmentBooking,
		entities.ServicePhlebotomy,
		entities.ServiceInsuranceQuery,
		entities.ServiceTechSupport,
		entities.ServiceAttachmentShared,
		entities.ServiceCustomerExperience,
		entities.ServiceGeneralQuery,
	}
}

// GoldenMessage is a labeled test message with its expected classification.
type GoldenMessage struct {
	ID                  string   `json:"id"`
	Message             string   `json:"message"`
	ServiceType         string   `json:"service_type"`
	ExpectedSubServices []string `json:"expected_sub_services"`
	Difficulty          string   `json:"difficulty"` // easy, medium, hard
}

// EvalResult holds the evaluation outcome for a single message.
type EvalResult struct {
	MessageID        string
	Message          string
	Expected         string
	Predicted        string
	Confidence       float64
	Correct          bool
	SubServiceRecall float64
	Latency          time.Duration
}

// EvalSummary holds aggregate metrics across all golden messages.
type EvalSummary struct {
	TotalMessages       int
	Accuracy            float64
	AvgConfidence       float64
	AvgSubServiceRecall float64
	AvgLatency          time.Duration
	LowConfidenceCount  int // predictions below the guardrail threshold
	ByService           map[string]*ServiceSummary
}

// ServiceSummary holds metrics grouped by expected service type.
type ServiceSummary struct {
	Count    int
	Correct  int
	Accuracy float64
}
