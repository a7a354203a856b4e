package evaluation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aurahealth/aura-chat/backend/internal/adapters/contextproviders"
	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
)

type fixedClassifier struct {
	results map[string]*entities.ClassificationResult
}

func (c *fixedClassifier) Classify(message string) *entities.ClassificationResult {
	if r, ok := c.results[message]; ok {
		return r
	}
	return &entities.ClassificationResult{ServiceType: entities.ServiceGeneralQuery, Confidence: entities.FallbackConfidence}
}

func TestRunnerAggregatesByService(t *testing.T) {
	classifier := &fixedClassifier{results: map[string]*entities.ClassificationResult{
		"a": {ServiceType: "Health Query", Confidence: 0.8, SubServices: []string{"cardiology"}},
		"b": {ServiceType: "Health Query", Confidence: 0.6},
		"c": {ServiceType: "General Query", Confidence: 0.3},
	}}
	runner := NewRunner(classifier, NewGuardrails(GuardrailConfig{MinConfidence: 0.5}))

	summary := runner.Run([]GoldenMessage{
		{ID: "m1", Message: "a", ServiceType: "Health Query", ExpectedSubServices: []string{"cardiology"}, Difficulty: "easy"},
		{ID: "m2", Message: "b", ServiceType: "Appointment Booking", Difficulty: "medium"},
		{ID: "m3", Message: "c", ServiceType: "General Query", Difficulty: "easy"},
	})

	if summary.TotalMessages != 3 {
		t.Fatalf("expected 3 messages, got %d", summary.TotalMessages)
	}
	// m1 and m3 correct, m2 predicted Health Query instead of booking.
	if !almostEqual(summary.Accuracy, 2.0/3.0) {
		t.Errorf("expected accuracy 2/3, got %f", summary.Accuracy)
	}
	if summary.LowConfidenceCount != 1 {
		t.Errorf("expected 1 low-confidence prediction, got %d", summary.LowConfidenceCount)
	}

	health := summary.ByService["Health Query"]
	if health == nil || health.Count != 1 || !almostEqual(health.Accuracy, 1.0) {
		t.Errorf("unexpected Health Query summary: %+v", health)
	}
	booking := summary.ByService["Appointment Booking"]
	if booking == nil || booking.Correct != 0 {
		t.Errorf("unexpected Appointment Booking summary: %+v", booking)
	}
	if !almostEqual(summary.AvgSubServiceRecall, 1.0) {
		t.Errorf("expected sub-service recall 1.0, got %f", summary.AvgSubServiceRecall)
	}
}

func TestRunnerEmptyGoldenSet(t *testing.T) {
	runner := NewRunner(&fixedClassifier{}, nil)
	summary := runner.Run(nil)
	if summary.TotalMessages != 0 || !almostEqual(summary.Accuracy, 0.0) {
		t.Errorf("unexpected summary for empty set: %+v", summary)
	}
}

func TestRunnerAgainstRuleBasedClassifier(t *testing.T) {
	classifier := contextproviders.NewClassificationProvider(contextproviders.ClassificationConfig{})
	runner := NewRunner(classifier, nil)

	summary := runner.Run([]GoldenMessage{
		{ID: "m1", Message: "I need to book an appointment urgently", ServiceType: "Appointment Booking", ExpectedSubServices: []string{"new_booking", "urgent"}, Difficulty: "easy"},
		{ID: "m2", Message: "My insurance claim was rejected", ServiceType: "Insurance Query", Difficulty: "easy"},
	})

	if !almostEqual(summary.Accuracy, 1.0) {
		t.Errorf("expected the rule-based classifier to label both messages, accuracy %f", summary.Accuracy)
	}
	if !almostEqual(summary.AvgSubServiceRecall, 1.0) {
		t.Errorf("expected full sub-service recall, got %f", summary.AvgSubServiceRecall)
	}
}

func TestWriteAccuracyCSVRoundTrips(t *testing.T) {
	summary := &EvalSummary{ByService: map[string]*ServiceSummary{
		"Health Query":  {Count: 4, Correct: 3, Accuracy: 0.75},
		"General Query": {Count: 2, Correct: 2, Accuracy: 1.0},
	}}

	path := filepath.Join(t.TempDir(), "accuracy.csv")
	if err := WriteAccuracyCSV(path, summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read back csv: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "Service Type,Accuracy,Examples") {
		t.Errorf("missing header: %q", content)
	}
	if !strings.Contains(content, "Health Query,75.00%,4") {
		t.Errorf("missing Health Query row: %q", content)
	}

	// The classifier's stats loader reads what the evaluator wrote.
	stats, examples, err := contextproviders.LoadAccuracyStats(path)
	if err != nil {
		t.Fatalf("stats loader rejected evaluator output: %v", err)
	}
	if !almostEqual(stats["General Query"], 1.0) {
		t.Errorf("expected General Query accuracy 1.0, got %f", stats["General Query"])
	}
	if examples != 6 {
		t.Errorf("expected 6 golden examples, got %d", examples)
	}
}
