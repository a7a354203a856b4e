package contextproviders

import (
	"context"
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

// Retrieval caps for a single history lookup.
const (
	maxConversations       = 50
	maxRecentConversations = 10
	maxRecentMessages      = 100
	maxSymptoms            = 10
	maxMedications         = 10
	maxConditions          = 5
	historySummaryLength   = 500
)

// HistoryProvider reconstructs a patient's recent conversation trail and
// derives symptom, medication and condition sets from it.
type HistoryProvider struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	users         repositories.UserRepository
	extractor     *engine.EntityExtractor
	log           zerolog.Logger
}

var _ providers.ContextProvider = (*HistoryProvider)(nil)

// NewHistoryProvider creates the patient history provider.
func NewHistoryProvider(
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	users repositories.UserRepository,
) *HistoryProvider {
	return &HistoryProvider{
		conversations: conversations,
		messages:      messages,
		users:         users,
		extractor:     engine.NewEntityExtractor(),
		log:           log.With().Str("provider", string(entities.SourcePatientHistory)).Logger(),
	}
}

// Name returns the provider's source tag.
func (p *HistoryProvider) Name() entities.ContextSource {
	return entities.SourcePatientHistory
}

// Initialize verifies the backing repositories are wired.
func (p *HistoryProvider) Initialize(ctx context.Context) error {
	if p.conversations == nil || p.messages == nil || p.users == nil {
		return apperrors.NewInternalError("history provider missing repositories", nil)
	}
	return nil
}

// GetContext builds the history contribution. Backing-store failures are
// recovered into a zero-relevance record.
func (p *HistoryProvider) GetContext(ctx context.Context, req providers.ContextRequest) *entities.ContextRecord {
	record := &entities.ContextRecord{
		Source:    entities.SourcePatientHistory,
		Timestamp: time.Now(),
	}

	conversations, err := p.conversations.ListByUser(ctx, req.UserID, maxConversations)
	if err != nil {
		p.log.Error().Err(err).Str("user_id", req.UserID).Msg("conversation lookup failed")
		record.Error = err.Error()
		record.Payload = &entities.HistoryContext{}
		return record
	}

	recent := conversations
	if len(recent) > maxRecentConversations {
		recent = recent[:maxRecentConversations]
	}

	var messages []*entities.Message
	if len(recent) > 0 {
		ids := make([]string, len(recent))
		for i, c := range recent {
			ids[i] = c.ID
		}
		messages, err = p.messages.ListRecent(ctx, repositories.MessageQuery{
			ConversationIDs: ids,
			Limit:           maxRecentMessages,
		})
		if err != nil {
			p.log.Error().Err(err).Str("user_id", req.UserID).Msg("message lookup failed")
			record.Error = err.Error()
			record.Payload = &entities.HistoryContext{}
			return record
		}
	}

	symptoms, medications, conditions := p.extractHistoryEntities(messages)

	var allergies []string
	if user, err := p.users.GetByID(ctx, req.UserID); err == nil && user != nil {
		allergies = user.Allergies
	}
	if allergies == nil {
		allergies = []string{}
	}

	headers := make([]entities.ConversationHeader, len(recent))
	for i, c := range recent {
		headers[i] = c.Header()
	}

	record.RelevanceScore = historyRelevance(req.Message, symptoms, medications, conversations)
	record.Payload = &entities.HistoryContext{
		PreviousConversations: headers,
		RecentSymptoms:        capStrings(symptoms, maxSymptoms),
		MedicationHistory:     capStrings(medications, maxMedications),
		KnownConditions:       capStrings(conditions, maxConditions),
		AllergyAlerts:         allergies,
		TotalConversations:    len(conversations),
		TotalMessages:         len(messages),
		HistorySummary:        engine.SummarizeConversations(headers, historySummaryLength),
	}
	return record
}

// PatientSummary builds the dashboard summary for a user: profile fields plus
// conversation and message counts.
func (p *HistoryProvider) PatientSummary(ctx context.Context, userID string) (*entities.PatientSummary, error) {
	user, err := p.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewNotFoundError("user not found")
	}

	convCount, err := p.conversations.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	msgCount := 0
	conversations, err := p.conversations.ListByUser(ctx, userID, 0)
	if err == nil && len(conversations) > 0 {
		ids := make([]string, len(conversations))
		for i, c := range conversations {
			ids[i] = c.ID
		}
		msgCount, err = p.messages.Count(ctx, repositories.MessageQuery{ConversationIDs: ids})
		if err != nil {
			return nil, err
		}
	}

	summary := &entities.PatientSummary{
		UserID:             userID,
		Name:               user.Name,
		Email:              user.Email,
		Role:               user.Role,
		TotalConversations: convCount,
		TotalMessages:      msgCount,
		MemberSince:        user.CreatedAt,
		Allergies:          user.Allergies,
	}
	if user.IsDoctor() {
		summary.Specialty = user.Specialty
	}
	return summary, nil
}

func (p *HistoryProvider) extractHistoryEntities(messages []*entities.Message) (symptoms, medications, conditions []string) {
	symptoms = []string{}
	medications = []string{}
	conditions = []string{}
	seen := map[entities.EntityCategory]map[string]struct{}{
		entities.CategorySymptoms:    {},
		entities.CategoryMedications: {},
		entities.CategoryConditions:  {},
	}

	appendUnique := func(cat entities.EntityCategory, dst []string, values []string) []string {
		for _, v := range values {
			key := strings.ToLower(v)
			if _, dup := seen[cat][key]; dup {
				continue
			}
			seen[cat][key] = struct{}{}
			dst = append(dst, v)
		}
		return dst
	}

	for _, msg := range messages {
		extracted := p.extractor.Extract(msg.Content)
		symptoms = appendUnique(entities.CategorySymptoms, symptoms, extracted.Symptoms())
		medications = appendUnique(entities.CategoryMedications, medications, extracted.Medications())
		conditions = appendUnique(entities.CategoryConditions, conditions, extracted.Conditions())
	}
	return symptoms, medications, conditions
}

// historyRelevance rates how pertinent the reconstructed history is to the
// current message: matched symptoms and medications weigh 0.2 each, the
// latest conversation's recency adds up to 0.3, and a deep history (more
// than 5 conversations) adds 0.2. Clamped to 1.0.
func historyRelevance(message string, symptoms, medications []string, conversations []*entities.Conversation) float64 {
	score := 0.0
	messageLower := strings.ToLower(message)

	for _, s := range symptoms {
		if strings.Contains(messageLower, strings.ToLower(s)) {
			score += 0.2
		}
	}
	for _, m := range medications {
		if strings.Contains(messageLower, strings.ToLower(m)) {
			score += 0.2
		}
	}

	if len(conversations) > 0 && !conversations[0].CreatedAt.IsZero() {
		ageDays := time.Since(conversations[0].CreatedAt).Hours() / 24
		switch {
		case ageDays < 7:
			score += 0.3
		case ageDays < 30:
			score += 0.1
		}
	}

	if len(conversations) > 5 {
		score += 0.2
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func capStrings(values []string, limit int) []string {
	if len(values) > limit {
		return values[:limit]
	}
	return values
}
