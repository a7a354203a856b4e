package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/aurahealth/aura-chat/backend/internal/adapters/cache"
	"github.com/aurahealth/aura-chat/backend/internal/adapters/contextproviders"
	"github.com/aurahealth/aura-chat/backend/internal/adapters/database"
	"github.com/aurahealth/aura-chat/backend/internal/adapters/memory"
	"github.com/aurahealth/aura-chat/backend/internal/adapters/search"
	"github.com/aurahealth/aura-chat/backend/internal/domain/providers"
	"github.com/aurahealth/aura-chat/backend/internal/domain/repositories"
	"github.com/aurahealth/aura-chat/backend/internal/infrastructure/clients/postgres"
	"github.com/aurahealth/aura-chat/backend/internal/infrastructure/clients/redis"
	"github.com/aurahealth/aura-chat/backend/internal/infrastructure/clients/typesense"
	"github.com/aurahealth/aura-chat/backend/internal/infrastructure/observability"
	"github.com/aurahealth/aura-chat/backend/internal/mcp"
	"github.com/aurahealth/aura-chat/backend/pkg/config"
)

func main() {
	var mode, userID, conversationID, message string
	flag.StringVar(&mode, "mode", "context", "query mode: context, classify, insights or stats")
	flag.StringVar(&userID, "user", "", "user ID the query runs for")
	flag.StringVar(&conversationID, "conversation", "", "conversation ID, optional")
	flag.StringVar(&message, "message", "", "message text to aggregate context for")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Document stores: Postgres when reachable, otherwise in-memory so the
	// binary stays usable for local smoke tests.
	var (
		conversations repositories.ConversationRepository
		messages      repositories.MessageRepository
		users         repositories.UserRepository
		knowledge     repositories.KnowledgeRepository
	)
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Printf("Warning: PostgreSQL unavailable, using in-memory stores: %v", err)
		conversations = memory.NewConversationStore()
		messages = memory.NewMessageStore()
		users = memory.NewUserStore()
		knowledge = memory.NewKnowledgeStore()
	} else {
		defer pgClient.Close()
		conversations = database.NewConversationAdapter(pgClient)
		messages = database.NewMessageAdapter(pgClient)
		users = database.NewUserAdapter(pgClient)
		knowledge = database.NewKnowledgeAdapter(pgClient)
		log.Println("PostgreSQL client initialized successfully")
	}

	// Aggregated-context cache
	var cacheProvider providers.CacheProvider
	if cfg.MCP.CacheBackend == "redis" {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Printf("Warning: Redis unavailable, using in-memory cache: %v", err)
			cacheProvider = cache.NewMemoryAdapter()
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient)
			log.Println("Redis cache initialized successfully")
		}
	} else {
		cacheProvider = cache.NewMemoryAdapter()
	}

	// Knowledge search index is optional; the provider falls back to the
	// primary store without it.
	var knowledgeSearch repositories.KnowledgeSearchRepository
	if cfg.Typesense.APIKey != "" {
		tsClient, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			log.Printf("Warning: Typesense unavailable, knowledge search disabled: %v", err)
		} else {
			knowledgeSearch = search.NewKnowledgeTypesenseAdapter(tsClient)
			log.Println("Typesense client initialized successfully")
		}
	}

	providerSet := []providers.ContextProvider{
		contextproviders.NewHistoryProvider(conversations, messages, users),
		contextproviders.NewClassificationProvider(contextproviders.ClassificationConfig{
			RulesPath:         cfg.MCP.RulesPath,
			AccuracyStatsPath: cfg.MCP.AccuracyStatsPath,
		}),
		contextproviders.NewKnowledgeProvider(
			knowledge,
			knowledgeSearch,
			time.Duration(cfg.MCP.KnowledgeCacheTTLSeconds)*time.Second,
		),
		contextproviders.NewIntelligenceProvider(messages, conversations),
	}

	server := mcp.NewServer(mcp.Config{
		CacheTTLSeconds:  cfg.MCP.CacheTTLSeconds,
		ProviderTimeout:  time.Duration(cfg.MCP.ProviderTimeoutSeconds) * time.Second,
		MaxContextTokens: cfg.MCP.MaxContextTokens,
	}, providerSet, cacheProvider, metrics)

	if err := server.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize context server: %v", err)
	}
	defer server.Shutdown(ctx)

	if err := runQuery(ctx, server, mode, userID, conversationID, message); err != nil {
		log.Fatalf("Query failed: %v", err)
	}
}

func runQuery(ctx context.Context, server *mcp.Server, mode, userID, conversationID, message string) error {
	switch mode {
	case "context":
		aggregated, err := server.GetContext(ctx, mcp.ContextQuery{
			UserID:         userID,
			Message:        message,
			ConversationID: conversationID,
		})
		if err != nil {
			return err
		}
		return printJSON(aggregated)
	case "classify":
		result, err := server.ClassifyInteraction(ctx, userID, message, conversationID)
		if err != nil {
			return err
		}
		return printJSON(result)
	case "insights":
		insights, err := server.GetPatientInsights(ctx, userID)
		if err != nil {
			return err
		}
		return printJSON(insights)
	case "stats":
		stats, err := server.ClassificationStats(ctx)
		if err != nil {
			return err
		}
		return printJSON(stats)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
