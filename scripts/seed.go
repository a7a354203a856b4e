package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/aurahealth/aura-chat/backend/internal/adapters/database"
	"github.com/aurahealth/aura-chat/backend/internal/adapters/search"
	"github.com/aurahealth/aura-chat/backend/internal/application/services"
	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
	"github.com/aurahealth/aura-chat/backend/internal/domain/repositories"
	"github.com/aurahealth/aura-chat/backend/internal/infrastructure/clients/postgres"
	"github.com/aurahealth/aura-chat/backend/internal/infrastructure/clients/typesense"
	"github.com/aurahealth/aura-chat/backend/pkg/config"
)

// Seeds a small demo dataset: a patient with a short conversation history
// plus a handful of knowledge entries, optionally indexed into Typesense.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	var searchRepo repositories.KnowledgeSearchRepository
	if tsClient, err := typesense.NewClient(&cfg.Typesense); err == nil {
		if err := tsClient.InitSchema(context.Background()); err != nil {
			log.Printf("Warning: failed to init Typesense schema: %v", err)
		} else {
			searchRepo = search.NewKnowledgeTypesenseAdapter(tsClient)
		}
	} else {
		log.Printf("Warning: Typesense unavailable, skipping index: %v", err)
	}

	ctx := context.Background()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				messages,
				conversations,
				knowledge_entries,
				users
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to truncate tables: %v", err)
		}
	}

	users := database.NewUserAdapter(pgClient)
	conversations := database.NewConversationAdapter(pgClient)
	messages := database.NewMessageAdapter(pgClient)
	knowledge := database.NewKnowledgeAdapter(pgClient)

	now := time.Now()

	patient := &entities.User{
		ID:        uuid.New().String(),
		Name:      "Ada Okafor",
		Email:     "ada@example.com",
		Role:      "patient",
		Allergies: []string{"penicillin"},
		CreatedAt: now.AddDate(-1, 0, 0),
	}
	doctor := &entities.User{
		ID:        uuid.New().String(),
		Name:      "Dr. Sam Mensah",
		Email:     "sam@example.com",
		Role:      "doctor",
		Specialty: "Cardiology",
		CreatedAt: now.AddDate(-2, 0, 0),
	}
	for _, u := range []*entities.User{patient, doctor} {
		if err := users.Upsert(ctx, u); err != nil {
			log.Fatalf("Failed to seed user %s: %v", u.Name, err)
		}
	}

	type turn struct {
		role string
		text string
	}
	seedConversations := []struct {
		topic   string
		daysAgo int
		turns   []turn
	}{
		{
			topic:   "Recurring headaches",
			daysAgo: 21,
			turns: []turn{
				{"user", "I keep getting a headache in the afternoons and some nausea"},
				{"assistant", "For a tension headache I recommend rest, hydration and a regular sleep schedule"},
			},
		},
		{
			topic:   "Chest discomfort after exercise",
			daysAgo: 5,
			turns: []turn{
				{"user", "I felt chest pain and shortness of breath after my run yesterday"},
				{"assistant", "Chest pain with exertion should be evaluated promptly; I suggest booking a cardiology consultation"},
			},
		},
		{
			topic:   "Medication question",
			daysAgo: 2,
			turns: []turn{
				{"user", "Can I take ibuprofen with my current medication?"},
				{"assistant", "Take ibuprofen with food and avoid exceeding the daily limit"},
			},
		},
	}

	for _, sc := range seedConversations {
		started := now.AddDate(0, 0, -sc.daysAgo)
		conv := &entities.Conversation{
			ID:           uuid.New().String(),
			UserID:       patient.ID,
			Topic:        sc.topic,
			MessageCount: len(sc.turns),
			CreatedAt:    started,
			UpdatedAt:    started.Add(10 * time.Minute),
		}
		if err := conversations.Upsert(ctx, conv); err != nil {
			log.Fatalf("Failed to seed conversation %q: %v", sc.topic, err)
		}
		for i, tn := range sc.turns {
			msg := &entities.Message{
				ID:             uuid.New().String(),
				ConversationID: conv.ID,
				Role:           entities.MessageRole(tn.role),
				Content:        tn.text,
				Timestamp:      started.Add(time.Duration(i) * time.Minute),
			}
			if err := messages.Upsert(ctx, msg); err != nil {
				log.Fatalf("Failed to seed message: %v", err)
			}
		}
	}

	knowledgeEntries := []*entities.KnowledgeEntry{
		{
			ID:        uuid.New().String(),
			Title:     "Chest pain triage",
			Content:   "Exertional chest pain warrants cardiac evaluation. Check blood pressure, heart rate and family history before advising.",
			Specialty: "Cardiology",
			Tags:      []string{"triage", "cardiac"},
			CreatedBy: doctor.ID,
			CreatedAt: now.AddDate(0, -3, 0),
		},
		{
			ID:        uuid.New().String(),
			Title:     "Managing tension headaches",
			Content:   "Most tension headaches respond to rest, hydration and over-the-counter analgesics. Persistent or worsening headache needs review.",
			Specialty: "Neurology",
			Tags:      []string{"chronic-care"},
			CreatedBy: doctor.ID,
			CreatedAt: now.AddDate(0, -2, 0),
		},
		{
			ID:        uuid.New().String(),
			Title:     "When to seek urgent care",
			Content:   "Severe pain, difficulty breathing, confusion or fainting are red flags that need urgent in-person assessment.",
			Specialty: entities.DefaultSpecialty,
			Tags:      []string{"triage"},
			CreatedBy: doctor.ID,
			CreatedAt: now.AddDate(0, -1, 0),
		},
	}
	ingestion := services.NewKnowledgeIngestionService(knowledge, searchRepo, cfg.MCP.IngestionWorkers)
	task, err := ingestion.Submit(ctx, "", "seed", knowledgeEntries)
	if err != nil {
		log.Fatalf("Failed to queue knowledge entries: %v", err)
	}
	// Close drains the queue, so the task is final by the time we poll it.
	ingestion.Close()

	taskID := task.ID
	task, err = ingestion.TaskStatus(taskID)
	if err != nil {
		log.Fatalf("Failed to read ingestion task %s: %v", taskID, err)
	}
	if task.Status != entities.IngestionCompleted {
		log.Fatalf("Knowledge ingestion %s: %s", task.Status, task.Error)
	}
	log.Printf("Ingestion task %s added %d/%d knowledge entries", task.ID, task.EntriesAdded, task.EntriesTotal)

	log.Printf("Seeded %d users, %d conversations, %d knowledge entries for patient %s",
		2, len(seedConversations), len(knowledgeEntries), patient.ID)
}
