package evaluation

// GuardrailConfig bounds what counts as a trustworthy prediction.
type GuardrailConfig struct {
	MinConfidence  float64
	MaxSubServices int
}

// Guardrails flags low-confidence predictions and caps sub-service lists so
// an over-eager ruleset cannot inflate recall.
type Guardrails struct {
	config GuardrailConfig
}

func NewGuardrails(config GuardrailConfig) *Guardrails {
	if config.MaxSubServices <= 0 {
		config.MaxSubServices = 5
	}
	return &Guardrails{config: config}
}

func (g *Guardrails) Confident(confidence float64) bool {
	return confidence >= g.config.MinConfidence
}

func (g *Guardrails) LimitSubServices(subServices []string) []string {
	if len(subServices) > g.config.MaxSubServices {
		return subServices[:g.config.MaxSubServices]
	}
	return subServices
}
