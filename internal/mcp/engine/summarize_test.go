package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
)

func TestSummarizeConversations_Empty(t *testing.T) {
	got := SummarizeConversations(nil, 500)
	if got != "No previous conversations" {
		t.Errorf("unexpected summary for no history: %q", got)
	}
}

func TestSummarizeConversations_Format(t *testing.T) {
	headers := []entities.ConversationHeader{
		{Topic: "Chest pain follow-up", CreatedAt: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)},
		{Topic: "", CreatedAt: time.Date(2026, 1, 3, 9, 0, 0, 0, time.UTC)},
	}

	got := SummarizeConversations(headers, 500)

	if !strings.Contains(got, "2026-02-10: Chest pain follow-up") {
		t.Errorf("missing dated topic in %q", got)
	}
	if !strings.Contains(got, "2026-01-03: General consultation") {
		t.Errorf("missing default topic in %q", got)
	}
	if !strings.Contains(got, " | ") {
		t.Errorf("entries not joined with separator: %q", got)
	}
}

func TestSummarizeConversations_Truncates(t *testing.T) {
	headers := []entities.ConversationHeader{
		{Topic: strings.Repeat("long topic ", 30), CreatedAt: time.Now()},
	}

	got := SummarizeConversations(headers, 50)

	if len(got) > 53 { // 50 plus ellipsis
		t.Errorf("summary not truncated: %d chars", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated summary missing ellipsis: %q", got)
	}
}
