package evaluation

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
)

// Classifier is the piece under evaluation.
type Classifier interface {
	Classify(message string) *entities.ClassificationResult
}

// Runner runs evaluation across a set of golden messages.
type Runner struct {
	classifier Classifier
	guardrails *Guardrails
}

func NewRunner(classifier Classifier, guardrails *Guardrails) *Runner {
	if guardrails == nil {
		guardrails = NewGuardrails(GuardrailConfig{})
	}
	return &Runner{classifier: classifier, guardrails: guardrails}
}

func (r *Runner) Run(messages []GoldenMessage) *EvalSummary {
	summary := &EvalSummary{
		TotalMessages: len(messages),
		ByService:     make(map[string]*ServiceSummary),
	}

	for _, gm := range messages {
		start := time.Now()
		prediction := r.classifier.Classify(gm.Message)
		duration := time.Since(start)

		predicted := r.guardrails.LimitSubServices(prediction.SubServices)
		result := EvalResult{
			MessageID:        gm.ID,
			Message:          gm.Message,
			Expected:         gm.ServiceType,
			Predicted:        prediction.ServiceType,
			Confidence:       prediction.Confidence,
			Correct:          prediction.ServiceType == gm.ServiceType,
			SubServiceRecall: SubServiceRecall(gm.ExpectedSubServices, predicted),
			Latency:          duration,
		}

		r.updateSummary(summary, result)
	}

	r.finalizeSummary(summary)
	return summary
}

func (r *Runner) updateSummary(s *EvalSummary, res EvalResult) {
	s.AvgConfidence += res.Confidence
	s.AvgSubServiceRecall += res.SubServiceRecall
	s.AvgLatency += res.Latency
	if !r.guardrails.Confident(res.Confidence) {
		s.LowConfidenceCount++
	}

	if _, ok := s.ByService[res.Expected]; !ok {
		s.ByService[res.Expected] = &ServiceSummary{}
	}
	ss := s.ByService[res.Expected]
	ss.Count++
	if res.Correct {
		ss.Correct++
	}
}

func (r *Runner) finalizeSummary(s *EvalSummary) {
	correct := 0
	for _, ss := range s.ByService {
		ss.Accuracy = Accuracy(ss.Correct, ss.Count)
		correct += ss.Correct
	}
	s.Accuracy = Accuracy(correct, s.TotalMessages)

	if s.TotalMessages > 0 {
		n := float64(s.TotalMessages)
		s.AvgConfidence /= n
		s.AvgSubServiceRecall /= n
		s.AvgLatency /= time.Duration(s.TotalMessages)
	}
}

// WriteAccuracyCSV writes per-service accuracy in the format the classifier's
// stats loader reads back ("Service Type","Accuracy" with percent values,
// plus the "Examples" count behind each figure), so an evaluation run can
// feed the live classification stats.
func WriteAccuracyCSV(path string, summary *EvalSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create accuracy stats file: %w", err)
	}
	defer f.Close()

	types := make([]string, 0, len(summary.ByService))
	for t := range summary.ByService {
		types = append(types, t)
	}
	sort.Strings(types)

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Service Type", "Accuracy", "Examples"}); err != nil {
		return fmt.Errorf("failed to write accuracy stats header: %w", err)
	}
	for _, t := range types {
		svc := summary.ByService[t]
		row := []string{t, fmt.Sprintf("%.2f%%", svc.Accuracy*100), strconv.Itoa(svc.Count)}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write accuracy stats row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
