package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aurahealth/aura-chat/backend/internal/adapters/database"
	"github.com/aurahealth/aura-chat/backend/internal/adapters/search"
	"github.com/aurahealth/aura-chat/backend/internal/infrastructure/clients/postgres"
	"github.com/aurahealth/aura-chat/backend/internal/infrastructure/clients/typesense"
	"github.com/aurahealth/aura-chat/backend/pkg/config"
)

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete the existing Typesense collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	var err error
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatalf("Invalid interval %q: %v", intervalValue, err)
		}
		if interval <= 0 {
			log.Fatalf("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, reset); err != nil {
			log.Printf("Reindex failed: %v", err)
		}

		if interval <= 0 {
			break
		}

		reset = false
		log.Printf("Reindex complete. Next run in %s.", interval)

		select {
		case <-ctx.Done():
			log.Println("Reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, reset bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	knowledgeRepo := database.NewKnowledgeAdapter(pgClient)

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		log.Printf("Dropping Typesense collection %q before reindex", tsClient.Collection())
		if err := tsClient.DropCollection(ctx); err != nil {
			log.Printf("Warning: failed to drop collection: %v", err)
		}
	}

	if err := tsClient.InitSchema(ctx); err != nil {
		return err
	}

	entries, err := knowledgeRepo.ListBySpecialties(ctx, nil, 0)
	if err != nil {
		return err
	}

	searchRepo := search.NewKnowledgeTypesenseAdapter(tsClient)

	log.Printf("Indexing %d knowledge entries...", len(entries))

	indexed, failed := 0, 0
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		if err := searchRepo.Index(ctx, entry); err != nil {
			failed++
			log.Printf("Warning: failed to index entry %s: %v", entry.ID, err)
			continue
		}
		indexed++
	}

	log.Printf("Indexed %d knowledge entries (%d failed)", indexed, failed)
	return nil
}
