package contextproviders

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
)

// Classification scoring: keyword hits are normalized by keywordNorm and
// weighted 0.6, pattern hits normalized by patternNorm and weighted 0.4.
const (
	keywordWeight = 0.6
	patternWeight = 0.4
	keywordNorm   = 3.0
	patternNorm   = 2.0
)

// overallAccuracy is the fallback measured accuracy when a service type has
// no entry in the stats file.
const overallAccuracy = 0.76

// ServiceRule maps one service type to its keyword and pattern sets. The
// ruleset is data-driven configuration: extending the taxonomy means adding
// rules, not touching scoring logic.
type ServiceRule struct {
	ServiceType string   `json:"service_type"`
	Keywords    []string `json:"keywords"`
	Patterns    []string `json:"patterns"`

	compiled []*regexp.Regexp
}

// Ruleset is the full classification rule table.
type Ruleset struct {
	Rules []ServiceRule `json:"rules"`
}

// Compile prepares the rule patterns for matching.
func (r *Ruleset) Compile() error {
	for i := range r.Rules {
		rule := &r.Rules[i]
		rule.compiled = make([]*regexp.Regexp, 0, len(rule.Patterns))
		for _, p := range rule.Patterns {
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				return fmt.Errorf("rule %q: invalid pattern %q: %w", rule.ServiceType, p, err)
			}
			rule.compiled = append(rule.compiled, re)
		}
	}
	return nil
}

// score rates the message against this rule. Both components are normalized
// and clamped to 1.0 before weighting.
func (r *ServiceRule) score(messageLower string) float64 {
	keywordHits := 0
	for _, kw := range r.Keywords {
		if strings.Contains(messageLower, kw) {
			keywordHits++
		}
	}
	keywordScore := float64(keywordHits) / keywordNorm
	if keywordScore > 1.0 {
		keywordScore = 1.0
	}

	patternHits := 0
	for _, re := range r.compiled {
		if re.MatchString(messageLower) {
			patternHits++
		}
	}
	patternScore := float64(patternHits) / patternNorm
	if patternScore > 1.0 {
		patternScore = 1.0
	}

	return keywordScore*keywordWeight + patternScore*patternWeight
}

// LoadRuleset reads a rule table from a JSON file.
func LoadRuleset(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ruleset: %w", err)
	}
	var rs Ruleset
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse ruleset: %w", err)
	}
	if err := rs.Compile(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// DefaultRuleset returns the built-in rule table covering the closed service
// taxonomy. ServiceGeneralQuery is intentionally absent: it is the fallback
// when nothing scores.
func DefaultRuleset() *Ruleset {
	rs := &Ruleset{Rules: []ServiceRule{
		{
			ServiceType: entities.ServiceHealthQuery,
			Keywords: []string{
				"pain", "symptom", "sick", "fever", "cough", "headache",
				"dizzy", "nausea", "ache", "hurt", "feel", "doctor",
				"diagnosis", "treatment", "prescription", "medication",
				"allergy", "condition", "disease", "injury", "bleeding",
			},
			Patterns: []string{
				`\b(how|what|why|when).*(feel|symptom|pain|sick)\b`,
				`\b(i have|experiencing|suffering from)\b`,
				`\b(can you (help|tell|explain))\b`,
			},
		},
		{
			ServiceType: entities.ServiceAppointmentBooking,
			Keywords: []string{
				"appointment", "schedule", "book", "meeting", "visit",
				"available", "slot", "time", "date", "cancel", "reschedule",
				"see doctor", "consultation", "check-up",
			},
			Patterns: []string{
				`\b(book|schedule|make|need|want).*(appointment|visit|meeting)\b`,
				`\b(available|when can|what time)\b`,
				`\b(cancel|reschedule|change)\b.*\bappointment\b`,
			},
		},
		{
			ServiceType: entities.ServicePhlebotomy,
			Keywords: []string{
				"blood test", "lab test", "blood work", "sample",
				"phlebotomy", "draw blood", "blood collection",
				"test results", "lab results",
			},
			Patterns: []string{
				`\b(blood|lab).*(test|work|sample|result)\b`,
				`\bphlebotomy\b`,
			},
		},
		{
			ServiceType: entities.ServiceInsuranceQuery,
			Keywords: []string{
				"insurance", "coverage", "claim", "copay", "deductible",
				"premium", "benefits", "policy", "billing", "cost",
				"payment", "covered", "provider network",
			},
			Patterns: []string{
				`\b(insurance|coverage).*(question|query|covered|cost)\b`,
				`\b(copay|deductible|premium|claim)\b`,
			},
		},
		{
			ServiceType: entities.ServiceTechSupport,
			Keywords: []string{
				"app", "website", "login", "password", "error", "bug",
				"not working", "problem", "issue", "technical", "access",
				"account", "sign in", "reset", "portal",
			},
			Patterns: []string{
				`\b(app|website|portal).*(not working|error|problem|issue)\b`,
				`\b(can't|cannot).*(login|access|sign in)\b`,
				`\b(password|account).*(reset|forgot|recover)\b`,
			},
		},
		{
			ServiceType: entities.ServiceAttachmentShared,
			Keywords: []string{
				"attachment", "file", "document", "report", "image",
				"upload", "send", "share", "photo", "scan", "pdf",
			},
			Patterns: []string{
				`\b(attach|upload|send|share).*(file|document|report|image)\b`,
				`\b(see|view|check).*(attachment|report|document)\b`,
			},
		},
		{
			ServiceType: entities.ServiceCustomerExperience,
			Keywords: []string{
				"feedback", "complaint", "suggestion", "review", "rating",
				"experience", "service", "satisfied", "unhappy",
			},
			Patterns: []string{
				`\b(feedback|complaint|suggestion)\b`,
				`\b(rate|review).*(service|experience)\b`,
			},
		},
	}}

	// Built-in patterns are known good.
	if err := rs.Compile(); err != nil {
		panic(err)
	}
	return rs
}

// LoadAccuracyStats reads measured per-service accuracy figures from a CSV
// with "Service Type" and "Accuracy" columns (e.g. "96.67%"). An optional
// "Examples" column carries the golden-set size behind each figure; the
// returned count is the sum across services, zero when the column is absent.
// The figures are display-only and never influence runtime classification.
func LoadAccuracyStats(path string) (map[string]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open accuracy stats: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse accuracy stats: %w", err)
	}
	if len(rows) == 0 {
		return map[string]float64{}, 0, nil
	}

	typeCol, accCol, exCol := -1, -1, -1
	for i, name := range rows[0] {
		switch strings.TrimSpace(name) {
		case "Service Type":
			typeCol = i
		case "Accuracy":
			accCol = i
		case "Examples":
			exCol = i
		}
	}
	if typeCol < 0 || accCol < 0 {
		return nil, 0, fmt.Errorf("accuracy stats missing required columns")
	}

	stats := make(map[string]float64, len(rows)-1)
	examples := 0
	for _, row := range rows[1:] {
		if len(row) <= typeCol || len(row) <= accCol {
			continue
		}
		serviceType := strings.TrimSpace(row[typeCol])
		raw := strings.TrimSuffix(strings.TrimSpace(row[accCol]), "%")
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		stats[serviceType] = val / 100
		if exCol >= 0 && len(row) > exCol {
			if n, err := strconv.Atoi(strings.TrimSpace(row[exCol])); err == nil {
				examples += n
			}
		}
	}
	return stats, examples, nil
}
