package engine

import (
	"sort"
	"strings"
	"time"
)

// Scoring weights. Keyword overlap contributes 0.1 per shared token, recency
// 0.3 under a day and 0.1 under a week, and a record's own confidence passes
// through at 0.2x. The sum is clamped so a score never leaves [0,1].
const (
	keywordOverlapWeight = 0.1
	recencyDayBonus      = 0.3
	recencyWeekBonus     = 0.1
	confidenceWeight     = 0.2
	charsPerToken        = 4
)

// Record is the scorer's view of an arbitrary context record: its searchable
// text, creation instant and optional confidence.
type Record struct {
	Text           string
	Timestamp      time.Time
	Confidence     float64
	HasConfidence  bool
	RelevanceScore float64
}

// EstimatedTokens is a cheap token estimate over the record's text.
func (r Record) EstimatedTokens() int {
	return len(r.Text) / charsPerToken
}

// Relevance returns the record's relevance score.
func (r Record) Relevance() float64 {
	return r.RelevanceScore
}

// Score rates a record's relevance to a query. The result is always within
// [0,1], even when the individual components overflow.
func Score(rec Record, query string) float64 {
	if query == "" {
		return 0.0
	}

	score := 0.0

	if rec.Text != "" {
		queryTokens := tokenSet(query)
		recordTokens := tokenSet(rec.Text)
		for token := range queryTokens {
			if _, ok := recordTokens[token]; ok {
				score += keywordOverlapWeight
			}
		}
	}

	if !rec.Timestamp.IsZero() {
		age := time.Since(rec.Timestamp)
		switch {
		case age < 24*time.Hour:
			score += recencyDayBonus
		case age < 7*24*time.Hour:
			score += recencyWeekBonus
		}
	}

	if rec.HasConfidence {
		score += rec.Confidence * confidenceWeight
	}

	return clamp01(score)
}

// Budgeted is anything selectable under a token budget.
type Budgeted interface {
	Relevance() float64
	EstimatedTokens() int
}

// SelectWithinBudget sorts items descending by relevance and greedily accepts
// them while the running token estimate stays within maxTokens, stopping at
// the first item that would exceed the budget. The greedy stop is deliberate:
// it trades optimal packing for determinism and relevance-order transparency.
func SelectWithinBudget[T Budgeted](items []T, maxTokens int) []T {
	ranked := make([]T, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Relevance() > ranked[j].Relevance()
	})

	selected := make([]T, 0, len(ranked))
	used := 0
	for _, item := range ranked {
		cost := item.EstimatedTokens()
		if used+cost > maxTokens {
			break
		}
		selected = append(selected, item)
		used += cost
	}
	return selected
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
