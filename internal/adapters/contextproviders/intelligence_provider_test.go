package contextproviders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurahealth/aura-chat/backend/internal/adapters/memory"
	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
	"github.com/aurahealth/aura-chat/backend/internal/domain/providers"
	"github.com/aurahealth/aura-chat/backend/internal/domain/repositories"
)

type failingMessageRepo struct{}

func (failingMessageRepo) ListRecent(ctx context.Context, query repositories.MessageQuery) ([]*entities.Message, error) {
	return nil, errors.New("store down")
}

func (failingMessageRepo) Count(ctx context.Context, query repositories.MessageQuery) (int, error) {
	return 0, errors.New("store down")
}

func (failingMessageRepo) Upsert(ctx context.Context, message *entities.Message) error {
	return errors.New("store down")
}

var _ repositories.MessageRepository = failingMessageRepo{}

func seedCorpus(t *testing.T) *memory.MessageStore {
	t.Helper()
	ctx := context.Background()
	store := memory.NewMessageStore()

	for i := 0; i < 4; i++ {
		convID := fmt.Sprintf("conv-%d", i)
		require.NoError(t, store.Upsert(ctx, &entities.Message{
			ID:             convID + "-q",
			ConversationID: convID,
			Role:           entities.RoleUser,
			Content:        "bad headache and nausea today",
			Timestamp:      time.Now().Add(-time.Duration(i+1) * 24 * time.Hour),
		}))
		require.NoError(t, store.Upsert(ctx, &entities.Message{
			ID:             convID + "-a",
			ConversationID: convID,
			Role:           entities.RoleAssistant,
			Content:        "For a headache I recommend rest and plenty of fluids",
			Timestamp:      time.Now().Add(-time.Duration(i+1) * 24 * time.Hour),
		}))
	}
	// Outside the 90-day window, must not count.
	require.NoError(t, store.Upsert(ctx, &entities.Message{
		ID:             "stale-q",
		ConversationID: "conv-stale",
		Role:           entities.RoleUser,
		Content:        "terrible headache",
		Timestamp:      time.Now().Add(-120 * 24 * time.Hour),
	}))
	return store
}

func TestIntelligenceProvider_GetContext(t *testing.T) {
	provider := NewIntelligenceProvider(seedCorpus(t), memory.NewConversationStore())
	require.NoError(t, provider.Initialize(context.Background()))

	record := provider.GetContext(context.Background(), providers.ContextRequest{
		UserID:  "user-1",
		Message: "I have a headache and nausea",
	})

	require.NotNil(t, record)
	assert.Equal(t, entities.SourceMedicalIntelligence, record.Source)
	assert.Empty(t, record.Error)

	payload, ok := record.Payload.(*entities.IntelligenceContext)
	require.True(t, ok)
	assert.Contains(t, payload.DetectedSymptoms, "headache")
	assert.Contains(t, payload.DetectedSymptoms, "nausea")
	assert.Equal(t, 4, payload.SimilarCases)
	assert.InDelta(t, 0.4, record.RelevanceScore, 1e-9)
	assert.Equal(t, "Analysis based on anonymized patient data", payload.Note)

	require.NotEmpty(t, payload.CommonTreatments)
	assert.Contains(t, payload.CommonTreatments[0].TreatmentContext, "recommend rest")

	require.NotEmpty(t, payload.SymptomClusters)
	for _, cluster := range payload.SymptomClusters {
		assert.NotEmpty(t, cluster.RelatedSymptoms)
	}
}

func TestIntelligenceProvider_GetContextNoSymptoms(t *testing.T) {
	provider := NewIntelligenceProvider(seedCorpus(t), memory.NewConversationStore())

	record := provider.GetContext(context.Background(), providers.ContextRequest{
		UserID:  "user-1",
		Message: "how do I update my profile?",
	})

	require.NotNil(t, record)
	assert.Zero(t, record.RelevanceScore)
	payload, ok := record.Payload.(*entities.IntelligenceContext)
	require.True(t, ok)
	assert.Empty(t, payload.DetectedSymptoms)
	assert.Zero(t, payload.SimilarCases)
}

func TestIntelligenceProvider_GetContextStoreFailure(t *testing.T) {
	provider := NewIntelligenceProvider(failingMessageRepo{}, memory.NewConversationStore())

	record := provider.GetContext(context.Background(), providers.ContextRequest{
		UserID:  "user-1",
		Message: "I have a headache",
	})

	require.NotNil(t, record)
	assert.Zero(t, record.RelevanceScore)
	assert.NotEmpty(t, record.Error)
	require.NotNil(t, record.Payload)
}

func TestIntelligenceProvider_RelevanceSaturates(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMessageStore()
	for i := 0; i < 15; i++ {
		convID := fmt.Sprintf("conv-%d", i)
		require.NoError(t, store.Upsert(ctx, &entities.Message{
			ID:             convID + "-q",
			ConversationID: convID,
			Role:           entities.RoleUser,
			Content:        "fever again",
			Timestamp:      time.Now().Add(-time.Hour),
		}))
	}

	provider := NewIntelligenceProvider(store, memory.NewConversationStore())
	record := provider.GetContext(ctx, providers.ContextRequest{Message: "I have a fever"})

	assert.Equal(t, 1.0, record.RelevanceScore)
}

func TestIntelligenceProvider_AnalyzePatientPatterns(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMessageStore()
	conversations := memory.NewConversationStore()
	for _, id := range []string{"conv-1", "conv-2"} {
		require.NoError(t, conversations.Upsert(ctx, &entities.Conversation{
			ID:        id,
			UserID:    "user-1",
			CreatedAt: time.Now().Add(-time.Hour),
		}))
	}
	contents := []string{
		"my headache is back",
		"headache and nausea all day",
		"just nausea now",
	}
	for i, content := range contents {
		require.NoError(t, store.Upsert(ctx, &entities.Message{
			ID:             fmt.Sprintf("m-%d", i),
			ConversationID: fmt.Sprintf("conv-%d", i%2+1),
			Role:           entities.RoleUser,
			Content:        content,
			Timestamp:      time.Now().Add(-time.Duration(i) * time.Hour),
		}))
	}

	provider := NewIntelligenceProvider(store, conversations)
	patterns, err := provider.AnalyzePatientPatterns(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, "user-1", patterns.UserID)
	assert.Equal(t, 2, patterns.TotalConversations)
	assert.Equal(t, 3, patterns.TotalMessages)
	assert.Equal(t, 2, patterns.UniqueSymptoms)
	require.NotEmpty(t, patterns.MostCommonSymptoms)
	assert.Equal(t, "headache", patterns.MostCommonSymptoms[0].Symptom)
	assert.Equal(t, 2, patterns.MostCommonSymptoms[0].Count)
}

func TestIntelligenceProvider_AnalyzePatientPatternsEmpty(t *testing.T) {
	provider := NewIntelligenceProvider(memory.NewMessageStore(), memory.NewConversationStore())

	patterns, err := provider.AnalyzePatientPatterns(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Zero(t, patterns.TotalConversations)
	assert.Empty(t, patterns.MostCommonSymptoms)
}
