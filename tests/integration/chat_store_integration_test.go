//go:build integration

package integration

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/aurahealth/aura-chat/backend/internal/adapters/database"
	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
	"github.com/aurahealth/aura-chat/backend/internal/domain/repositories"
	"github.com/aurahealth/aura-chat/backend/internal/infrastructure/clients/postgres"
)

type ChatStoreIntegrationTestSuite struct {
	suite.Suite
	client        *postgres.Client
	db            *sql.DB
	users         repositories.UserRepository
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	knowledge     repositories.KnowledgeRepository
}

func (suite *ChatStoreIntegrationTestSuite) SetupSuite() {
	suite.client = newTestPostgresClient(suite.T())
	suite.db = suite.client.DB()
	suite.users = database.NewUserAdapter(suite.client)
	suite.conversations = database.NewConversationAdapter(suite.client)
	suite.messages = database.NewMessageAdapter(suite.client)
	suite.knowledge = database.NewKnowledgeAdapter(suite.client)

	suite.runMigrations()
}

func (suite *ChatStoreIntegrationTestSuite) TearDownSuite() {
	if suite.client != nil {
		suite.client.Close()
	}
}

func (suite *ChatStoreIntegrationTestSuite) SetupTest() {
	suite.cleanupTestData()
}

func (suite *ChatStoreIntegrationTestSuite) runMigrations() {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			role TEXT NOT NULL,
			allergies TEXT[],
			specialty TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			topic TEXT,
			message_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS knowledge_entries (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			specialty TEXT NOT NULL,
			tags TEXT[],
			created_by TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		_, err := suite.db.Exec(stmt)
		require.NoError(suite.T(), err)
	}
}

func (suite *ChatStoreIntegrationTestSuite) cleanupTestData() {
	for _, table := range []string{"messages", "conversations", "knowledge_entries", "users"} {
		_, err := suite.db.Exec("DELETE FROM " + table)
		require.NoError(suite.T(), err)
	}
}

func (suite *ChatStoreIntegrationTestSuite) TestUserRoundTrip() {
	ctx := context.Background()
	user := &entities.User{
		ID:        "user-1",
		Name:      "Ada Okafor",
		Email:     "ada@example.com",
		Role:      "patient",
		Allergies: []string{"penicillin", "latex"},
		CreatedAt: time.Now().Add(-24 * time.Hour),
	}
	require.NoError(suite.T(), suite.users.Upsert(ctx, user))

	got, err := suite.users.GetByID(ctx, "user-1")
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), got)
	assert.Equal(suite.T(), "Ada Okafor", got.Name)
	assert.Equal(suite.T(), []string{"penicillin", "latex"}, got.Allergies)
	assert.False(suite.T(), got.IsDoctor())

	// Unknown users are a nil result, not an error.
	missing, err := suite.users.GetByID(ctx, "nope")
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), missing)
}

func (suite *ChatStoreIntegrationTestSuite) TestConversationListingAndCounts() {
	ctx := context.Background()
	base := time.Now().Add(-72 * time.Hour)
	for i, topic := range []string{"Headaches", "Chest pain", "Medication"} {
		conv := &entities.Conversation{
			ID:        "conv-" + topic,
			UserID:    "user-1",
			Topic:     topic,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(suite.T(), suite.conversations.Upsert(ctx, conv))
	}

	listed, err := suite.conversations.ListByUser(ctx, "user-1", 2)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), listed, 2)
	assert.Equal(suite.T(), "Medication", listed[0].Topic, "newest conversation first")

	count, err := suite.conversations.CountByUser(ctx, "user-1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 3, count)

	other, err := suite.conversations.ListByUser(ctx, "someone-else", 0)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), other)
}

func (suite *ChatStoreIntegrationTestSuite) TestMessageFilters() {
	ctx := context.Background()
	now := time.Now()
	seed := []*entities.Message{
		{ID: "m1", ConversationID: "c1", Role: entities.RoleUser, Content: "I have a bad headache", Timestamp: now.Add(-2 * time.Hour)},
		{ID: "m2", ConversationID: "c1", Role: entities.RoleAssistant, Content: "I recommend rest and fluids", Timestamp: now.Add(-1 * time.Hour)},
		{ID: "m3", ConversationID: "c2", Role: entities.RoleUser, Content: "My HEADACHE is back", Timestamp: now.Add(-30 * time.Minute)},
		{ID: "m4", ConversationID: "c2", Role: entities.RoleUser, Content: "Also some nausea", Timestamp: now.Add(-200 * time.Hour)},
	}
	for _, m := range seed {
		require.NoError(suite.T(), suite.messages.Upsert(ctx, m))
	}

	// Case-insensitive substring match over user messages in a time window.
	matched, err := suite.messages.ListRecent(ctx, repositories.MessageQuery{
		Contains: "headache",
		Role:     entities.RoleUser,
		Since:    now.Add(-3 * time.Hour),
	})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), matched, 2)
	assert.Equal(suite.T(), "m3", matched[0].ID, "newest match first")

	byConversation, err := suite.messages.ListRecent(ctx, repositories.MessageQuery{
		ConversationIDs: []string{"c1"},
	})
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), byConversation, 2)

	count, err := suite.messages.Count(ctx, repositories.MessageQuery{Role: entities.RoleUser})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 3, count)
}

func (suite *ChatStoreIntegrationTestSuite) TestKnowledgeBySpecialty() {
	ctx := context.Background()
	entries := []*entities.KnowledgeEntry{
		{ID: "k1", Title: "Chest pain triage", Content: "cardiac", Specialty: "Cardiology", Tags: []string{"triage"}, CreatedAt: time.Now().Add(-48 * time.Hour)},
		{ID: "k2", Title: "Rash care", Content: "skin", Specialty: "Dermatology", CreatedAt: time.Now().Add(-24 * time.Hour)},
		{ID: "k3", Title: "Hydration", Content: "general", Specialty: entities.DefaultSpecialty, CreatedAt: time.Now()},
	}
	for _, e := range entries {
		require.NoError(suite.T(), suite.knowledge.Upsert(ctx, e))
	}

	cardio, err := suite.knowledge.ListBySpecialties(ctx, []string{"Cardiology", entities.DefaultSpecialty}, 0)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), cardio, 2)
	assert.Equal(suite.T(), "k3", cardio[0].ID, "newest entry first")

	all, err := suite.knowledge.ListBySpecialties(ctx, nil, 0)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), all, 3)

	count, err := suite.knowledge.CountBySpecialty(ctx, "Dermatology")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)

	// Upsert replaces in place.
	entries[0].Title = "Chest pain triage v2"
	require.NoError(suite.T(), suite.knowledge.Upsert(ctx, entries[0]))
	count, err = suite.knowledge.CountBySpecialty(ctx, "Cardiology")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}

func TestChatStoreIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(ChatStoreIntegrationTestSuite))
}
