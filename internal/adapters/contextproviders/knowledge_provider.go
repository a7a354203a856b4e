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
	"github.com/aurahealth/aura-chat/backend/internal/domain/repositories"
	"github.com/aurahealth/aura-chat/backend/internal/mcp/engine"
	apperrors "github.com/aurahealth/aura-chat/backend/pkg/errors"
)

const (
	maxKnowledgeFetch   = 100
	maxRelevantEntries  = 10
	maxKnowledgeTokens  = 600
	relevanceThreshold  = 0.3
	relevanceSampleSize = 5
	defaultKnowledgeTTL = time.Hour
)

// specialtyKeywords maps keyword sets to medical specialties for routing a
// message to the right slice of the knowledge base.
var specialtyKeywords = map[string][]string{
	"Cardiology":       {"heart", "chest pain", "blood pressure", "cardiac", "palpitations"},
	"Dermatology":      {"skin", "rash", "acne", "mole", "itchy", "eczema"},
	"Orthopedics":      {"bone", "joint", "fracture", "sprain", "back pain", "knee", "shoulder"},
	"Gastroenterology": {"stomach", "digestion", "nausea", "diarrhea", "constipation", "abdominal"},
	"Neurology":        {"headache", "migraine", "dizziness", "seizure", "numbness", "tingling"},
	"Pulmonology":      {"breathing", "cough", "asthma", "lungs", "shortness of breath", "wheezing"},
	"Endocrinology":    {"diabetes", "thyroid", "hormone", "blood sugar", "insulin"},
	"Psychiatry":       {"anxiety", "depression", "stress", "mental", "sleep", "insomnia"},
	"Pediatrics":       {"child", "baby", "infant", "toddler", "vaccination"},
}

type knowledgeCacheEntry struct {
	entries   []*entities.KnowledgeEntry
	fetchedAt time.Time
}

// KnowledgeProvider surfaces curated knowledge base entries relevant to the
// current message. Entries are fetched per specialty and cached locally to
// keep repeated lookups off the primary store; a full-text search index is
// consulted first when one is wired.
type KnowledgeProvider struct {
	knowledge repositories.KnowledgeRepository
	search    repositories.KnowledgeSearchRepository // optional
	cacheTTL  time.Duration
	log       zerolog.Logger

	mu    sync.RWMutex
	cache map[string]knowledgeCacheEntry
}

var _ providers.ContextProvider = (*KnowledgeProvider)(nil)

// NewKnowledgeProvider creates the knowledge base provider. search may be nil;
// a non-positive cacheTTL falls back to one hour.
func NewKnowledgeProvider(
	knowledge repositories.KnowledgeRepository,
	search repositories.KnowledgeSearchRepository,
	cacheTTL time.Duration,
) *KnowledgeProvider {
	if cacheTTL <= 0 {
		cacheTTL = defaultKnowledgeTTL
	}
	return &KnowledgeProvider{
		knowledge: knowledge,
		search:    search,
		cacheTTL:  cacheTTL,
		log:       log.With().Str("provider", string(entities.SourceKnowledgeBase)).Logger(),
		cache:     make(map[string]knowledgeCacheEntry),
	}
}

// Name returns the provider's source tag.
func (p *KnowledgeProvider) Name() entities.ContextSource {
	return entities.SourceKnowledgeBase
}

// Initialize verifies the backing repository is wired.
func (p *KnowledgeProvider) Initialize(ctx context.Context) error {
	if p.knowledge == nil {
		return apperrors.NewInternalError("knowledge provider missing repository", nil)
	}
	return nil
}

// GetContext retrieves the entries most relevant to the message. Backing-store
// failures are recovered into a zero-relevance record.
func (p *KnowledgeProvider) GetContext(ctx context.Context, req providers.ContextRequest) *entities.ContextRecord {
	record := &entities.ContextRecord{
		Source:    entities.SourceKnowledgeBase,
		Timestamp: time.Now(),
	}

	specialty := DetectSpecialty(req.Message)

	entries, err := p.fetchEntries(ctx, req.Message, specialty)
	if err != nil {
		p.log.Error().Err(err).Str("specialty", specialty).Msg("knowledge lookup failed")
		record.Error = err.Error()
		record.Payload = &entities.KnowledgeContext{Specialty: specialty}
		return record
	}

	scored := scoreEntries(entries, req.Message)

	record.RelevanceScore = knowledgeRelevance(scored)
	record.Payload = &entities.KnowledgeContext{
		Specialty:         specialty,
		RelevantKnowledge: scored,
		TotalEntries:      len(entries),
		MatchedEntries:    len(scored),
	}
	return record
}

// Guidelines groups a specialty's entries by tag for the doctor-facing view.
func (p *KnowledgeProvider) Guidelines(ctx context.Context, specialty string) (*entities.SpecialtyGuidelines, error) {
	if specialty == "" {
		specialty = entities.DefaultSpecialty
	}
	entries, err := p.specialtyEntries(ctx, specialty)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string][]*entities.KnowledgeEntry)
	for _, entry := range entries {
		tags := entry.Tags
		if len(tags) == 0 {
			tags = []string{"general"}
		}
		for _, tag := range tags {
			byCategory[tag] = append(byCategory[tag], entry)
		}
	}

	categories := make([]string, 0, len(byCategory))
	for tag := range byCategory {
		categories = append(categories, tag)
	}
	sort.Strings(categories)

	return &entities.SpecialtyGuidelines{
		Specialty:            specialty,
		TotalEntries:         len(entries),
		Categories:           categories,
		GuidelinesByCategory: byCategory,
	}, nil
}

// DetectSpecialty maps a message to a medical specialty by keyword hits,
// falling back to General Medicine. Ties break alphabetically.
func DetectSpecialty(message string) string {
	messageLower := strings.ToLower(message)

	best := entities.DefaultSpecialty
	bestHits := 0
	names := make([]string, 0, len(specialtyKeywords))
	for name := range specialtyKeywords {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		hits := 0
		for _, kw := range specialtyKeywords[name] {
			if strings.Contains(messageLower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best = name
			bestHits = hits
		}
	}
	return best
}

// fetchEntries prefers the search index when wired, falling back to the
// cached per-specialty fetch from the primary store. The detected specialty
// and the general bucket are both consulted.
func (p *KnowledgeProvider) fetchEntries(ctx context.Context, message, specialty string) ([]*entities.KnowledgeEntry, error) {
	if p.search != nil {
		entries, err := p.search.Search(ctx, message, specialty, maxKnowledgeFetch)
		if err == nil {
			return entries, nil
		}
		// Index outages degrade to the primary store.
		p.log.Warn().Err(err).Msg("knowledge search index unavailable, using primary store")
	}

	entries, err := p.specialtyEntries(ctx, specialty)
	if err != nil {
		return nil, err
	}
	if specialty == entities.DefaultSpecialty {
		return entries, nil
	}

	general, err := p.specialtyEntries(ctx, entities.DefaultSpecialty)
	if err != nil {
		// The specialty slice alone is still useful.
		p.log.Warn().Err(err).Msg("general knowledge lookup failed")
		return entries, nil
	}
	return append(entries, general...), nil
}

func (p *KnowledgeProvider) specialtyEntries(ctx context.Context, specialty string) ([]*entities.KnowledgeEntry, error) {
	p.mu.RLock()
	cached, ok := p.cache[specialty]
	p.mu.RUnlock()
	if ok && time.Since(cached.fetchedAt) < p.cacheTTL {
		return cached.entries, nil
	}

	entries, err := p.knowledge.ListBySpecialties(ctx, []string{specialty}, maxKnowledgeFetch)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[specialty] = knowledgeCacheEntry{entries: entries, fetchedAt: time.Now()}
	p.mu.Unlock()
	return entries, nil
}

// scoreEntries rates each entry against the message, then keeps the matches
// above the relevance threshold that fit the knowledge token budget.
func scoreEntries(entries []*entities.KnowledgeEntry, message string) []entities.ScoredKnowledgeEntry {
	scored := make([]entities.ScoredKnowledgeEntry, 0, len(entries))
	for _, entry := range entries {
		rec := engine.Record{
			Text:      entry.Title + " " + entry.Content + " " + strings.Join(entry.Tags, " "),
			Timestamp: entry.CreatedAt,
		}
		score := engine.Score(rec, message)
		if score > relevanceThreshold {
			scored = append(scored, entities.ScoredKnowledgeEntry{Entry: entry, RelevanceScore: score})
		}
	}

	scored = engine.SelectWithinBudget(scored, maxKnowledgeTokens)
	if len(scored) > maxRelevantEntries {
		scored = scored[:maxRelevantEntries]
	}
	return scored
}

// knowledgeRelevance averages the top entry scores over a fixed sample size,
// so a single strong match does not dominate and a deep match set is rewarded.
func knowledgeRelevance(scored []entities.ScoredKnowledgeEntry) float64 {
	if len(scored) == 0 {
		return 0.0
	}
	sum := 0.0
	for i, s := range scored {
		if i == relevanceSampleSize {
			break
		}
		sum += s.RelevanceScore
	}
	score := sum / relevanceSampleSize
	if score > 1.0 {
		score = 1.0
	}
	return score
}
