package contextproviders

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurahealth/aura-chat/backend/internal/adapters/memory"
	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
	"github.com/aurahealth/aura-chat/backend/internal/domain/providers"
	"github.com/aurahealth/aura-chat/backend/internal/domain/repositories"
)

type failingKnowledgeRepo struct{}

func (failingKnowledgeRepo) ListBySpecialties(ctx context.Context, specialties []string, limit int) ([]*entities.KnowledgeEntry, error) {
	return nil, errors.New("store down")
}

func (failingKnowledgeRepo) CountBySpecialty(ctx context.Context, specialty string) (int, error) {
	return 0, errors.New("store down")
}

func (failingKnowledgeRepo) Upsert(ctx context.Context, entry *entities.KnowledgeEntry) error {
	return errors.New("store down")
}

var _ repositories.KnowledgeRepository = failingKnowledgeRepo{}

func seedKnowledge(t *testing.T) *memory.KnowledgeStore {
	t.Helper()
	ctx := context.Background()
	store := memory.NewKnowledgeStore()

	entries := []*entities.KnowledgeEntry{
		{
			ID:        "kb-1",
			Title:     "Chest pain triage",
			Content:   "Guidance for evaluating chest pain and cardiac symptoms",
			Specialty: "Cardiology",
			Tags:      []string{"triage"},
			CreatedAt: time.Now().Add(-24 * time.Hour),
		},
		{
			ID:        "kb-2",
			Title:     "Blood pressure management",
			Content:   "Monitoring blood pressure and hypertension follow-up",
			Specialty: "Cardiology",
			Tags:      []string{"chronic-care"},
			CreatedAt: time.Now().Add(-48 * time.Hour),
		},
		{
			ID:        "kb-3",
			Title:     "Hydration basics",
			Content:   "General hydration advice",
			Specialty: entities.DefaultSpecialty,
			Tags:      []string{"wellness"},
			CreatedAt: time.Now().Add(-72 * time.Hour),
		},
	}
	for _, e := range entries {
		require.NoError(t, store.Upsert(ctx, e))
	}
	return store
}

func TestDetectSpecialty(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"I have chest pain and palpitations", "Cardiology"},
		{"my skin has an itchy rash", "Dermatology"},
		{"my knee hurts after the sprain", "Orthopedics"},
		{"I feel anxiety and can't sleep", "Psychiatry"},
		{"hello there", entities.DefaultSpecialty},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectSpecialty(tt.message), "message %q", tt.message)
	}
}

func TestKnowledgeProvider_GetContext(t *testing.T) {
	provider := NewKnowledgeProvider(seedKnowledge(t), nil, time.Hour)
	require.NoError(t, provider.Initialize(context.Background()))

	record := provider.GetContext(context.Background(), providers.ContextRequest{
		UserID:  "user-1",
		Message: "I have chest pain, evaluating cardiac symptoms",
	})

	require.NotNil(t, record)
	assert.Equal(t, entities.SourceKnowledgeBase, record.Source)
	assert.Empty(t, record.Error)

	payload, ok := record.Payload.(*entities.KnowledgeContext)
	require.True(t, ok)
	assert.Equal(t, "Cardiology", payload.Specialty)
	require.NotEmpty(t, payload.RelevantKnowledge)
	assert.Equal(t, "kb-1", payload.RelevantKnowledge[0].Entry.ID)
	assert.Greater(t, record.RelevanceScore, 0.0)

	for _, scored := range payload.RelevantKnowledge {
		assert.Greater(t, scored.RelevanceScore, 0.3)
	}
}

func TestScoreEntriesRespectsTokenBudget(t *testing.T) {
	entries := []*entities.KnowledgeEntry{
		{
			ID:        "kb-small",
			Title:     "Chest pain triage",
			Content:   "Cardiac chest pain guidance",
			CreatedAt: time.Now().Add(-time.Hour),
		},
		{
			ID:        "kb-big-1",
			Title:     "Blood pressure monitoring",
			Content:   strings.Repeat("hypertension follow up guidance ", 60),
			CreatedAt: time.Now().Add(-time.Hour),
		},
		{
			ID:        "kb-big-2",
			Title:     "Cardiac rehabilitation",
			Content:   strings.Repeat("recovery exercise plan guidance ", 60),
			CreatedAt: time.Now().Add(-time.Hour),
		},
	}

	scored := scoreEntries(entries, "chest pain cardiac triage blood pressure")

	// All three clear the relevance threshold, but the two large entries
	// together would blow past the token budget, so only the best-scoring
	// large entry survives alongside the cheap one.
	require.Len(t, scored, 2)
	assert.Equal(t, "kb-small", scored[0].Entry.ID)
	assert.Equal(t, "kb-big-1", scored[1].Entry.ID)

	used := 0
	for _, s := range scored {
		used += s.EstimatedTokens()
	}
	assert.LessOrEqual(t, used, maxKnowledgeTokens)
}

func TestKnowledgeProvider_GetContextNoMatches(t *testing.T) {
	provider := NewKnowledgeProvider(seedKnowledge(t), nil, time.Hour)

	record := provider.GetContext(context.Background(), providers.ContextRequest{
		UserID:  "user-1",
		Message: "zebra quantum paperclip",
	})

	require.NotNil(t, record)
	assert.Zero(t, record.RelevanceScore)
	payload, ok := record.Payload.(*entities.KnowledgeContext)
	require.True(t, ok)
	assert.Empty(t, payload.RelevantKnowledge)
}

func TestKnowledgeProvider_GetContextStoreFailure(t *testing.T) {
	provider := NewKnowledgeProvider(failingKnowledgeRepo{}, nil, time.Hour)

	record := provider.GetContext(context.Background(), providers.ContextRequest{
		UserID:  "user-1",
		Message: "chest pain",
	})

	require.NotNil(t, record)
	assert.Zero(t, record.RelevanceScore)
	assert.NotEmpty(t, record.Error)
	require.NotNil(t, record.Payload)
}

func TestKnowledgeProvider_CachesSpecialtyFetches(t *testing.T) {
	ctx := context.Background()
	store := seedKnowledge(t)
	provider := NewKnowledgeProvider(store, nil, time.Hour)

	first := provider.GetContext(ctx, providers.ContextRequest{Message: "chest pain cardiac"})
	firstPayload := first.Payload.(*entities.KnowledgeContext)

	// New entries within the TTL are not picked up.
	require.NoError(t, store.Upsert(ctx, &entities.KnowledgeEntry{
		ID:        "kb-late",
		Title:     "Chest pain addendum",
		Content:   "More chest pain cardiac guidance",
		Specialty: "Cardiology",
		CreatedAt: time.Now(),
	}))

	second := provider.GetContext(ctx, providers.ContextRequest{Message: "chest pain cardiac"})
	secondPayload := second.Payload.(*entities.KnowledgeContext)
	assert.Equal(t, firstPayload.TotalEntries, secondPayload.TotalEntries)
}

func TestKnowledgeProvider_Guidelines(t *testing.T) {
	provider := NewKnowledgeProvider(seedKnowledge(t), nil, time.Hour)

	guidelines, err := provider.Guidelines(context.Background(), "Cardiology")
	require.NoError(t, err)

	assert.Equal(t, "Cardiology", guidelines.Specialty)
	assert.Equal(t, 2, guidelines.TotalEntries)
	assert.Equal(t, []string{"chronic-care", "triage"}, guidelines.Categories)
	assert.Len(t, guidelines.GuidelinesByCategory["triage"], 1)
}
