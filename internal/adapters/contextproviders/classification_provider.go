package contextproviders

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
	"github.com/aurahealth/aura-chat/backend/internal/domain/providers"
)

// alternativeThreshold filters low-confidence candidates out of the
// alternatives list.
const alternativeThreshold = 0.3

// maxAlternatives caps how many runner-up classifications are reported.
const maxAlternatives = 3

// healthQuerySpecialties drives the sub-service pass for Health Query.
var healthQuerySpecialties = map[string][]string{
	"cardiology":  {"heart", "cardiac", "chest pain", "blood pressure"},
	"dermatology": {"skin", "rash", "acne", "itch"},
	"orthopedics": {"bone", "joint", "fracture", "sprain"},
	"neurology":   {"headache", "migraine", "seizure", "brain"},
	"gastro":      {"stomach", "digestion", "nausea", "diarrhea"},
	"respiratory": {"cough", "breathing", "asthma", "lung"},
}

// ClassificationConfig holds the optional external rule and stats sources.
type ClassificationConfig struct {
	// RulesPath points at a JSON ruleset; empty means the built-in table.
	RulesPath string
	// AccuracyStatsPath points at the measured-accuracy CSV; optional.
	AccuracyStatsPath string
}

// ClassificationProvider classifies messages into the service taxonomy using
// keyword and pattern rules. Classification is rule-based, not learned; the
// optional stats file only reports measured accuracy.
type ClassificationProvider struct {
	cfg ClassificationConfig
	log zerolog.Logger

	mu          sync.Mutex
	initialized bool
	rules       *Ruleset
	accuracy    map[string]float64
	examples    int
}

var _ providers.ContextProvider = (*ClassificationProvider)(nil)

// NewClassificationProvider creates the service classification provider.
func NewClassificationProvider(cfg ClassificationConfig) *ClassificationProvider {
	return &ClassificationProvider{
		cfg: cfg,
		log: log.With().Str("provider", string(entities.SourceServiceClassification)).Logger(),
	}
}

// Name returns the provider's source tag.
func (p *ClassificationProvider) Name() entities.ContextSource {
	return entities.SourceServiceClassification
}

// Initialize loads and compiles the ruleset. Idempotent.
func (p *ClassificationProvider) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return nil
	}

	rules := DefaultRuleset()
	if p.cfg.RulesPath != "" {
		loaded, err := LoadRuleset(p.cfg.RulesPath)
		if err != nil {
			return err
		}
		rules = loaded
	}
	p.rules = rules

	p.accuracy = map[string]float64{}
	if p.cfg.AccuracyStatsPath != "" {
		stats, examples, err := LoadAccuracyStats(p.cfg.AccuracyStatsPath)
		if err != nil {
			// Stats are display-only; a missing file must not block the
			// classifier.
			p.log.Warn().Err(err).Msg("accuracy stats unavailable")
		} else {
			p.accuracy = stats
			p.examples = examples
		}
	}

	p.initialized = true
	p.log.Info().Int("rules", len(p.rules.Rules)).Msg("classification provider initialized")
	return nil
}

// GetContext classifies the message and wraps the result as a context record.
// The record's relevance score is the classification confidence.
func (p *ClassificationProvider) GetContext(ctx context.Context, req providers.ContextRequest) *entities.ContextRecord {
	record := &entities.ContextRecord{
		Source:    entities.SourceServiceClassification,
		Timestamp: time.Now(),
	}

	result := p.Classify(req.Message)
	record.RelevanceScore = result.Confidence
	record.Payload = &entities.ClassificationContext{
		PredictedServiceType: result.ServiceType,
		Confidence:           result.Confidence,
		SubServices:          result.SubServices,
		Alternatives:         result.Alternatives,
		MeasuredAccuracy:     result.MeasuredAccuracy,
	}
	return record
}

// Classify maps a message to a service type with confidence, sub-services and
// ranked alternatives. A message matching no rule falls back to General Query
// with the fixed fallback confidence.
func (p *ClassificationProvider) Classify(message string) *entities.ClassificationResult {
	rules := p.ruleset()
	messageLower := strings.ToLower(message)

	scores := make([]entities.ServiceScore, 0, len(rules.Rules))
	for i := range rules.Rules {
		rule := &rules.Rules[i]
		scores = append(scores, entities.ServiceScore{
			ServiceType: rule.ServiceType,
			Confidence:  rule.score(messageLower),
		})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Confidence > scores[j].Confidence
	})

	if len(scores) == 0 || scores[0].Confidence == 0 {
		return &entities.ClassificationResult{
			ServiceType:      entities.ServiceGeneralQuery,
			Confidence:       entities.FallbackConfidence,
			SubServices:      []string{},
			Alternatives:     []entities.ServiceScore{},
			MeasuredAccuracy: p.accuracyFor(entities.ServiceGeneralQuery),
		}
	}

	top := scores[0]
	alternatives := make([]entities.ServiceScore, 0, maxAlternatives)
	for _, s := range scores[1:] {
		if len(alternatives) == maxAlternatives {
			break
		}
		if s.Confidence > alternativeThreshold {
			alternatives = append(alternatives, s)
		}
	}

	return &entities.ClassificationResult{
		ServiceType:      top.ServiceType,
		Confidence:       top.Confidence,
		SubServices:      detectSubServices(messageLower, top.ServiceType),
		Alternatives:     alternatives,
		MeasuredAccuracy: p.accuracyFor(top.ServiceType),
	}
}

// Stats summarizes the active ruleset and its measured accuracy.
func (p *ClassificationProvider) Stats() *entities.ClassificationStats {
	rules := p.ruleset()
	p.mu.Lock()
	accuracy := make(map[string]float64, len(p.accuracy))
	for k, v := range p.accuracy {
		accuracy[k] = v
	}
	examples := p.examples
	p.mu.Unlock()

	types := make([]string, 0, len(rules.Rules))
	for _, r := range rules.Rules {
		types = append(types, r.ServiceType)
	}

	overall := overallAccuracy
	if len(accuracy) > 0 {
		sum := 0.0
		for _, v := range accuracy {
			sum += v
		}
		overall = sum / float64(len(accuracy))
	}

	return &entities.ClassificationStats{
		ServiceTypes:      types,
		AccuracyByService: accuracy,
		OverallAccuracy:   overall,
		TrainingExamples:  examples,
	}
}

func (p *ClassificationProvider) ruleset() *Ruleset {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rules == nil {
		// Classify before Initialize still works on the built-in table.
		p.rules = DefaultRuleset()
	}
	return p.rules
}

func (p *ClassificationProvider) accuracyFor(serviceType string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.accuracy[serviceType]; ok {
		return v
	}
	return overallAccuracy
}

// detectSubServices runs the second keyword pass specific to the winning
// service type.
func detectSubServices(messageLower, serviceType string) []string {
	subServices := []string{}

	switch serviceType {
	case entities.ServiceHealthQuery:
		// Deterministic order over the specialty table.
		names := make([]string, 0, len(healthQuerySpecialties))
		for name := range healthQuerySpecialties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, kw := range healthQuerySpecialties[name] {
				if strings.Contains(messageLower, kw) {
					subServices = append(subServices, name)
					break
				}
			}
		}
	case entities.ServiceAppointmentBooking:
		if strings.Contains(messageLower, "cancel") || strings.Contains(messageLower, "reschedule") {
			subServices = append(subServices, "modification")
		} else if strings.Contains(messageLower, "book") || strings.Contains(messageLower, "schedule") {
			subServices = append(subServices, "new_booking")
		}
		if strings.Contains(messageLower, "urgent") || strings.Contains(messageLower, "asap") ||
			strings.Contains(messageLower, "emergency") {
			subServices = append(subServices, "urgent")
		}
	}

	return subServices
}
