package engine

import (
	"strings"
	"testing"
	"time"
)

func TestScore_Bounds(t *testing.T) {
	records := []Record{
		{},
		{Text: "chest pain and headache", Timestamp: time.Now(), Confidence: 1.0, HasConfidence: true},
		{Text: strings.Repeat("pain fever cough nausea dizziness fatigue ", 20), Timestamp: time.Now(), Confidence: 5.0, HasConfidence: true},
	}
	queries := []string{"", "pain", "pain fever cough nausea dizziness fatigue headache rash"}

	for _, rec := range records {
		for _, q := range queries {
			got := Score(rec, q)
			if got < 0.0 || got > 1.0 {
				t.Errorf("Score(%+v, %q) = %f, out of [0,1]", rec, q, got)
			}
		}
	}
}

func TestScore_ClampsOverflow(t *testing.T) {
	// Many shared tokens plus recency plus confidence overflows 1.0 before
	// clamping.
	rec := Record{
		Text:          "pain fever cough nausea dizziness fatigue headache rash swelling bleeding",
		Timestamp:     time.Now().Add(-time.Hour),
		Confidence:    1.0,
		HasConfidence: true,
	}
	got := Score(rec, rec.Text)
	if got != 1.0 {
		t.Errorf("expected clamped score 1.0, got %f", got)
	}
}

func TestScore_RecencyDecay(t *testing.T) {
	// Identical records except age; no keyword overlap with the query.
	fresh := Record{Text: "unrelated note", Timestamp: time.Now().Add(-time.Hour)}
	stale := Record{Text: "unrelated note", Timestamp: time.Now().Add(-10 * 24 * time.Hour)}

	freshScore := Score(fresh, "chest pain")
	staleScore := Score(stale, "chest pain")

	if staleScore >= freshScore {
		t.Errorf("10-day-old record scored %f, not below 1-hour-old record's %f", staleScore, freshScore)
	}
}

func TestScore_KeywordOverlap(t *testing.T) {
	old := time.Now().Add(-30 * 24 * time.Hour)
	none := Score(Record{Text: "insurance paperwork", Timestamp: old}, "chest pain")
	two := Score(Record{Text: "chest pain diary", Timestamp: old}, "chest pain")

	if none != 0.0 {
		t.Errorf("no overlap, no recency: expected 0.0, got %f", none)
	}
	if diff := two - 0.2; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("two shared tokens: expected 0.2, got %f", two)
	}
}

func TestScore_EmptyQuery(t *testing.T) {
	rec := Record{Text: "chest pain", Timestamp: time.Now(), Confidence: 1.0, HasConfidence: true}
	if got := Score(rec, ""); got != 0.0 {
		t.Errorf("empty query: expected 0.0, got %f", got)
	}
}

func TestSelectWithinBudget_RespectsBudget(t *testing.T) {
	items := []Record{
		{Text: strings.Repeat("a", 400), RelevanceScore: 0.9},
		{Text: strings.Repeat("b", 400), RelevanceScore: 0.8},
		{Text: strings.Repeat("c", 400), RelevanceScore: 0.7},
	}

	selected := SelectWithinBudget(items, 250)

	total := 0
	for _, s := range selected {
		total += s.EstimatedTokens()
	}
	if total > 250 {
		t.Errorf("selected token estimate %d exceeds budget 250", total)
	}
	if len(selected) != 2 {
		t.Errorf("expected 2 records within budget, got %d", len(selected))
	}
}

func TestSelectWithinBudget_GreedyStopsAtFirstOverflow(t *testing.T) {
	// The second-ranked record overflows the budget; the smaller third must
	// NOT be admitted in its place.
	items := []Record{
		{Text: strings.Repeat("a", 400), RelevanceScore: 0.9}, // 100 tokens
		{Text: strings.Repeat("b", 800), RelevanceScore: 0.8}, // 200 tokens
		{Text: strings.Repeat("c", 40), RelevanceScore: 0.7},  // 10 tokens
	}

	selected := SelectWithinBudget(items, 150)

	if len(selected) != 1 {
		t.Fatalf("expected greedy stop after 1 record, got %d", len(selected))
	}
	if selected[0].RelevanceScore != 0.9 {
		t.Errorf("expected top-ranked record first, got relevance %f", selected[0].RelevanceScore)
	}
}

func TestSelectWithinBudget_OrdersByRelevance(t *testing.T) {
	items := []Record{
		{Text: "low", RelevanceScore: 0.1},
		{Text: "high", RelevanceScore: 0.9},
		{Text: "mid", RelevanceScore: 0.5},
	}

	selected := SelectWithinBudget(items, 1000)

	if len(selected) != 3 {
		t.Fatalf("expected all 3 records, got %d", len(selected))
	}
	for i := 1; i < len(selected); i++ {
		if selected[i].RelevanceScore > selected[i-1].RelevanceScore {
			t.Errorf("selection not sorted by relevance: %v", selected)
		}
	}
}

func TestSelectWithinBudget_DoesNotMutateInput(t *testing.T) {
	items := []Record{
		{Text: "low", RelevanceScore: 0.1},
		{Text: "high", RelevanceScore: 0.9},
	}

	SelectWithinBudget(items, 1000)

	if items[0].RelevanceScore != 0.1 || items[1].RelevanceScore != 0.9 {
		t.Errorf("input slice reordered: %v", items)
	}
}
