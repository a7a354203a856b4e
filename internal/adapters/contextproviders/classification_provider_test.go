package contextproviders

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
	"github.com/aurahealth/aura-chat/backend/internal/domain/providers"
)

func TestClassificationProvider_Classify(t *testing.T) {
	provider := NewClassificationProvider(ClassificationConfig{})
	require.NoError(t, provider.Initialize(context.Background()))

	t.Run("appointment booking with sub-services", func(t *testing.T) {
		result := provider.Classify("I need to book an appointment urgently")

		assert.Equal(t, entities.ServiceAppointmentBooking, result.ServiceType)
		assert.Greater(t, result.Confidence, 0.5)
		assert.Contains(t, result.SubServices, "new_booking")
		assert.Contains(t, result.SubServices, "urgent")
	})

	t.Run("health query with specialty sub-services", func(t *testing.T) {
		result := provider.Classify("I have severe chest pain and a headache")

		assert.Equal(t, entities.ServiceHealthQuery, result.ServiceType)
		assert.Greater(t, result.Confidence, 0.5)
		assert.Contains(t, result.SubServices, "cardiology")
		assert.Contains(t, result.SubServices, "neurology")
	})

	t.Run("appointment modification", func(t *testing.T) {
		result := provider.Classify("I want to reschedule my appointment")

		assert.Equal(t, entities.ServiceAppointmentBooking, result.ServiceType)
		assert.Contains(t, result.SubServices, "modification")
		assert.NotContains(t, result.SubServices, "new_booking")
	})

	t.Run("unmatched message falls back to general query", func(t *testing.T) {
		result := provider.Classify("xyzzy plugh")

		assert.Equal(t, entities.ServiceGeneralQuery, result.ServiceType)
		assert.Equal(t, entities.FallbackConfidence, result.Confidence)
		assert.Empty(t, result.SubServices)
		assert.Empty(t, result.Alternatives)
	})

	t.Run("alternatives exclude top pick and weak candidates", func(t *testing.T) {
		result := provider.Classify("I have chest pain, can I book an appointment with a doctor?")

		assert.LessOrEqual(t, len(result.Alternatives), 3)
		for _, alt := range result.Alternatives {
			assert.NotEqual(t, result.ServiceType, alt.ServiceType)
			assert.Greater(t, alt.Confidence, 0.3)
		}
	})

	t.Run("confidence bounded", func(t *testing.T) {
		result := provider.Classify("pain symptom sick fever cough headache dizzy nausea, I have all of them, how do I feel?")

		assert.LessOrEqual(t, result.Confidence, 1.0)
	})
}

func TestClassificationProvider_GetContext(t *testing.T) {
	provider := NewClassificationProvider(ClassificationConfig{})
	require.NoError(t, provider.Initialize(context.Background()))

	record := provider.GetContext(context.Background(), providers.ContextRequest{
		UserID:         "user-1",
		Message:        "I want to schedule a visit",
		ConversationID: "conv-1",
	})

	require.NotNil(t, record)
	assert.Equal(t, entities.SourceServiceClassification, record.Source)
	assert.Empty(t, record.Error)

	payload, ok := record.Payload.(*entities.ClassificationContext)
	require.True(t, ok)
	assert.Equal(t, entities.ServiceAppointmentBooking, payload.PredictedServiceType)
	assert.Equal(t, payload.Confidence, record.RelevanceScore)
}

func TestClassificationProvider_InitializeIdempotent(t *testing.T) {
	provider := NewClassificationProvider(ClassificationConfig{})

	require.NoError(t, provider.Initialize(context.Background()))
	require.NoError(t, provider.Initialize(context.Background()))
}

func TestClassificationProvider_Stats(t *testing.T) {
	provider := NewClassificationProvider(ClassificationConfig{})
	require.NoError(t, provider.Initialize(context.Background()))

	stats := provider.Stats()
	require.NotNil(t, stats)
	assert.Len(t, stats.ServiceTypes, 7)
	assert.Contains(t, stats.ServiceTypes, entities.ServiceHealthQuery)
	assert.Greater(t, stats.OverallAccuracy, 0.0)
}

func TestClassificationProvider_StatsReportTrainingExamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accuracy.csv")
	csv := "Service Type,Accuracy,Examples\n" +
		"Health Query,96.67%,30\n" +
		"General Query,100.00%,12\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	provider := NewClassificationProvider(ClassificationConfig{AccuracyStatsPath: path})
	require.NoError(t, provider.Initialize(context.Background()))

	stats := provider.Stats()
	require.NotNil(t, stats)
	assert.Equal(t, 42, stats.TrainingExamples)
	assert.InDelta(t, 0.9667, stats.AccuracyByService["Health Query"], 0.0001)
}

func TestClassificationProvider_ClassifyIsDeterministic(t *testing.T) {
	provider := NewClassificationProvider(ClassificationConfig{})
	require.NoError(t, provider.Initialize(context.Background()))

	message := "I have chest pain and a headache, can I book an appointment?"
	first := provider.Classify(message)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, provider.Classify(message))
	}
}
