package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/aurahealth/aura-chat/backend/internal/adapters/contextproviders"
	"github.com/aurahealth/aura-chat/backend/internal/evaluation"
	"github.com/aurahealth/aura-chat/backend/pkg/config"
)

func main() {
	var goldenPath, statsOut string
	var minConfidence float64
	flag.StringVar(&goldenPath, "golden", "config/golden_messages.json", "path to the labeled golden message set")
	flag.StringVar(&statsOut, "stats-out", "", "optional path to write the per-service accuracy CSV")
	flag.Float64Var(&minConfidence, "min-confidence", 0.5, "confidence below which a prediction is flagged")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	messages, err := evaluation.LoadGoldenMessages(goldenPath)
	if err != nil {
		log.Fatalf("Failed to load golden messages: %v", err)
	}
	if err := evaluation.ValidateGoldenMessages(messages); err != nil {
		log.Fatalf("Invalid golden message set: %v", err)
	}

	classifier := contextproviders.NewClassificationProvider(contextproviders.ClassificationConfig{
		RulesPath: cfg.MCP.RulesPath,
	})

	runner := evaluation.NewRunner(classifier, evaluation.NewGuardrails(evaluation.GuardrailConfig{
		MinConfidence: minConfidence,
	}))
	summary := runner.Run(messages)

	if statsOut != "" {
		if err := evaluation.WriteAccuracyCSV(statsOut, summary); err != nil {
			log.Fatalf("Failed to write accuracy stats: %v", err)
		}
		log.Printf("Wrote per-service accuracy to %s", statsOut)
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
}
