package engine

import (
	"strings"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
)

// maxSummaryConversations caps how many recent conversations appear in a
// history summary line.
const maxSummaryConversations = 5

// SummarizeConversations renders a compact "date: topic | ..." line over the
// most recent conversations, truncated to maxLength characters.
func SummarizeConversations(headers []entities.ConversationHeader, maxLength int) string {
	if len(headers) == 0 {
		return "No previous conversations"
	}

	recent := headers
	if len(recent) > maxSummaryConversations {
		recent = recent[:maxSummaryConversations]
	}

	parts := make([]string, 0, len(recent))
	for _, h := range recent {
		date := "Unknown date"
		if !h.CreatedAt.IsZero() {
			date = h.CreatedAt.Format("2006-01-02")
		}
		topic := h.Topic
		if topic == "" {
			topic = "General consultation"
		}
		parts = append(parts, date+": "+topic)
	}

	summary := strings.Join(parts, " | ")
	if maxLength > 0 && len(summary) > maxLength {
		summary = summary[:maxLength] + "..."
	}
	return summary
}
