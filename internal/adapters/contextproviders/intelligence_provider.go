package contextproviders

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
	"github.com/aurahealth/aura-chat/backend/internal/domain/providers"
	"github.com/aurahealth/aura-chat/backend/internal/domain/repositories"
	"github.com/aurahealth/aura-chat/backend/internal/mcp/engine"
	apperrors "github.com/aurahealth/aura-chat/backend/pkg/errors"
)

const (
	similarCaseWindow    = 90 * 24 * time.Hour
	maxSimilarMessages   = 50
	maxTreatments        = 5
	maxSymptomClusters   = 3
	maxClusterRelated    = 3
	caseRelevanceDivisor = 10.0
	patternMessageLimit  = 200
	maxCommonSymptoms    = 10

	// Static until outcome tracking lands; cases have no close date yet.
	estimatedResolution = "3-7 days (estimated)"

	anonymizationNote = "Analysis based on anonymized patient data"
)

// treatmentKeywords mark assistant sentences that carry advice worth
// surfacing as a treatment pattern.
var treatmentKeywords = []string{
	"recommend", "suggest", "prescribe", "take", "try", "apply", "rest", "drink",
}

// IntelligenceProvider mines the message corpus for population-level signals:
// how many patients reported the same symptoms recently, what was advised,
// and which symptoms co-occur. It only ever reports aggregates.
type IntelligenceProvider struct {
	messages      repositories.MessageRepository
	conversations repositories.ConversationRepository
	extractor     *engine.EntityExtractor
	log           zerolog.Logger
}

var _ providers.ContextProvider = (*IntelligenceProvider)(nil)

// NewIntelligenceProvider creates the medical intelligence provider. The
// conversation repository only feeds per-patient pattern analysis.
func NewIntelligenceProvider(
	messages repositories.MessageRepository,
	conversations repositories.ConversationRepository,
) *IntelligenceProvider {
	return &IntelligenceProvider{
		messages:      messages,
		conversations: conversations,
		extractor:     engine.NewEntityExtractor(),
		log:           log.With().Str("provider", string(entities.SourceMedicalIntelligence)).Logger(),
	}
}

// Name returns the provider's source tag.
func (p *IntelligenceProvider) Name() entities.ContextSource {
	return entities.SourceMedicalIntelligence
}

// Initialize verifies the backing repository is wired.
func (p *IntelligenceProvider) Initialize(ctx context.Context) error {
	if p.messages == nil {
		return apperrors.NewInternalError("intelligence provider missing repository", nil)
	}
	return nil
}

// GetContext analyzes similar recent cases for the symptoms in the message.
// Backing-store failures are recovered into a zero-relevance record.
func (p *IntelligenceProvider) GetContext(ctx context.Context, req providers.ContextRequest) *entities.ContextRecord {
	record := &entities.ContextRecord{
		Source:    entities.SourceMedicalIntelligence,
		Timestamp: time.Now(),
	}

	symptoms := p.extractor.Extract(req.Message).Symptoms()
	if len(symptoms) == 0 {
		record.Payload = &entities.IntelligenceContext{
			DetectedSymptoms: []string{},
			CommonTreatments: []entities.TreatmentPattern{},
			SymptomClusters:  []entities.SymptomCluster{},
			Note:             anonymizationNote,
		}
		return record
	}

	since := time.Now().Add(-similarCaseWindow)
	similar := make([]*entities.Message, 0, maxSimilarMessages)
	seenIDs := make(map[string]struct{})
	var lookupErr error
	for _, symptom := range symptoms {
		matches, err := p.messages.ListRecent(ctx, repositories.MessageQuery{
			Contains: symptom,
			Role:     entities.RoleUser,
			Since:    since,
			Limit:    maxSimilarMessages,
		})
		if err != nil {
			lookupErr = err
			break
		}
		for _, msg := range matches {
			if _, dup := seenIDs[msg.ID]; dup {
				continue
			}
			seenIDs[msg.ID] = struct{}{}
			similar = append(similar, msg)
		}
	}
	if lookupErr != nil {
		p.log.Error().Err(lookupErr).Msg("similar case lookup failed")
		record.Error = lookupErr.Error()
		record.Payload = &entities.IntelligenceContext{
			DetectedSymptoms: symptoms,
			CommonTreatments: []entities.TreatmentPattern{},
			SymptomClusters:  []entities.SymptomCluster{},
			Note:             anonymizationNote,
		}
		return record
	}

	cases := distinctConversations(similar)
	treatments, err := p.commonTreatments(ctx, symptoms, since)
	if err != nil {
		p.log.Warn().Err(err).Msg("treatment lookup failed")
		treatments = []entities.TreatmentPattern{}
	}

	record.RelevanceScore = caseRelevance(cases)
	record.Payload = &entities.IntelligenceContext{
		DetectedSymptoms:      symptoms,
		SimilarCases:          cases,
		CommonTreatments:      treatments,
		SymptomClusters:       p.symptomClusters(similar, symptoms),
		AverageResolutionTime: estimatedResolution,
		Note:                  anonymizationNote,
	}
	return record
}

// AnalyzePatientPatterns counts how often each symptom recurs across a single
// patient's conversations.
func (p *IntelligenceProvider) AnalyzePatientPatterns(ctx context.Context, userID string) (*entities.PatientPatterns, error) {
	if p.conversations == nil {
		return nil, apperrors.NewInternalError("intelligence provider missing conversation repository", nil)
	}
	conversations, err := p.conversations.ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, err
	}

	patterns := &entities.PatientPatterns{
		UserID:             userID,
		TotalConversations: len(conversations),
		MostCommonSymptoms: []entities.SymptomFrequency{},
		AnalyzedAt:         time.Now(),
	}
	if len(conversations) == 0 {
		return patterns, nil
	}

	ids := make([]string, len(conversations))
	for i, c := range conversations {
		ids[i] = c.ID
	}
	messages, err := p.messages.ListRecent(ctx, repositories.MessageQuery{
		ConversationIDs: ids,
		Role:            entities.RoleUser,
		Limit:           patternMessageLimit,
	})
	if err != nil {
		return nil, err
	}
	patterns.TotalMessages = len(messages)

	counts := make(map[string]int)
	for _, msg := range messages {
		for _, symptom := range p.extractor.Extract(msg.Content).Symptoms() {
			counts[strings.ToLower(symptom)]++
		}
	}
	patterns.UniqueSymptoms = len(counts)

	frequencies := make([]entities.SymptomFrequency, 0, len(counts))
	for symptom, count := range counts {
		frequencies = append(frequencies, entities.SymptomFrequency{Symptom: symptom, Count: count})
	}
	sort.SliceStable(frequencies, func(i, j int) bool {
		if frequencies[i].Count != frequencies[j].Count {
			return frequencies[i].Count > frequencies[j].Count
		}
		return frequencies[i].Symptom < frequencies[j].Symptom
	})
	if len(frequencies) > maxCommonSymptoms {
		frequencies = frequencies[:maxCommonSymptoms]
	}
	patterns.MostCommonSymptoms = frequencies
	return patterns, nil
}

// commonTreatments scans recent assistant messages mentioning the symptoms
// for advice-bearing sentences and ranks them by recurrence.
func (p *IntelligenceProvider) commonTreatments(ctx context.Context, symptoms []string, since time.Time) ([]entities.TreatmentPattern, error) {
	counts := make(map[string]int)
	for _, symptom := range symptoms {
		matches, err := p.messages.ListRecent(ctx, repositories.MessageQuery{
			Contains: symptom,
			Role:     entities.RoleAssistant,
			Since:    since,
			Limit:    maxSimilarMessages,
		})
		if err != nil {
			return nil, err
		}
		for _, msg := range matches {
			for _, sentence := range splitSentences(msg.Content) {
				if adviceSentence(sentence) {
					counts[normalizeSentence(sentence)]++
				}
			}
		}
	}

	patterns := make([]entities.TreatmentPattern, 0, len(counts))
	for sentence, count := range counts {
		patterns = append(patterns, entities.TreatmentPattern{TreatmentContext: sentence, Frequency: count})
	}
	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Frequency != patterns[j].Frequency {
			return patterns[i].Frequency > patterns[j].Frequency
		}
		return patterns[i].TreatmentContext < patterns[j].TreatmentContext
	})
	if len(patterns) > maxTreatments {
		patterns = patterns[:maxTreatments]
	}
	return patterns, nil
}

// symptomClusters lists, for each detected symptom, the other symptoms most
// often appearing in the same message.
func (p *IntelligenceProvider) symptomClusters(messages []*entities.Message, symptoms []string) []entities.SymptomCluster {
	clusters := make([]entities.SymptomCluster, 0, maxSymptomClusters)
	for _, primary := range symptoms {
		if len(clusters) == maxSymptomClusters {
			break
		}
		primaryLower := strings.ToLower(primary)

		related := make(map[string]int)
		for _, msg := range messages {
			contentLower := strings.ToLower(msg.Content)
			if !strings.Contains(contentLower, primaryLower) {
				continue
			}
			for _, other := range p.extractor.Extract(msg.Content).Symptoms() {
				otherLower := strings.ToLower(other)
				if otherLower != primaryLower {
					related[otherLower]++
				}
			}
		}
		if len(related) == 0 {
			continue
		}

		names := make([]string, 0, len(related))
		for name := range related {
			names = append(names, name)
		}
		sort.SliceStable(names, func(i, j int) bool {
			if related[names[i]] != related[names[j]] {
				return related[names[i]] > related[names[j]]
			}
			return names[i] < names[j]
		})
		if len(names) > maxClusterRelated {
			names = names[:maxClusterRelated]
		}
		clusters = append(clusters, entities.SymptomCluster{
			PrimarySymptom:  primaryLower,
			RelatedSymptoms: names,
		})
	}
	return clusters
}

// caseRelevance scales with the number of similar cases, saturating at ten.
func caseRelevance(cases int) float64 {
	score := float64(cases) / caseRelevanceDivisor
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// distinctConversations counts the conversations behind a message set, a
// proxy for distinct patient cases.
func distinctConversations(messages []*entities.Message) int {
	seen := make(map[string]struct{}, len(messages))
	for _, msg := range messages {
		seen[msg.ConversationID] = struct{}{}
	}
	return len(seen)
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
}

func adviceSentence(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, kw := range treatmentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func normalizeSentence(sentence string) string {
	return strings.ToLower(strings.TrimSpace(sentence))
}
