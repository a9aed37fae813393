// Package pricing converts token counts into platform credits.
//
// cost = ceil((inputTokens + outputTokens) * multiplier(kind) / tokensPerCredit)
//
// Costs are always rounded up so a call is never charged less than it used.
package pricing

import (
	"math"

	"paperforge/internal/models"
)

type Config struct {
	TokensPerCredit float64
	Multipliers     map[models.Kind]float64
	AssumedOutput   map[models.Kind]int
}

func DefaultConfig() Config {
	return Config{
		TokensPerCredit: 1000,
		Multipliers: map[models.Kind]float64{
			models.KindSummary: 1,
			models.KindCode:    2,
			models.KindChat:    1,
		},
		AssumedOutput: map[models.Kind]int{
			models.KindSummary: 500,
			models.KindCode:    1500,
			models.KindChat:    500,
		},
	}
}

type CostEstimate struct {
	Kind         models.Kind `json:"kind"`
	InputTokens  int         `json:"input_tokens"`
	OutputTokens int         `json:"output_tokens"`
	Credits      int64       `json:"credits"`
}

type Model struct {
	cfg Config
}

func NewModel(cfg Config) Model {
	if cfg.TokensPerCredit <= 0 {
		cfg.TokensPerCredit = DefaultConfig().TokensPerCredit
	}
	return Model{cfg: cfg}
}

func (m Model) Multiplier(kind models.Kind) float64 {
	if v, ok := m.cfg.Multipliers[kind]; ok && v > 0 {
		return v
	}
	return 1
}

func (m Model) AssumedOutput(kind models.Kind) int {
	if v, ok := m.cfg.AssumedOutput[kind]; ok && v > 0 {
		return v
	}
	return 0
}

// Estimate prices a call before it is made, using assumedOutput in place of
// the unknown completion size.
func (m Model) Estimate(inputTokens, assumedOutput int, kind models.Kind) CostEstimate {
	return m.price(inputTokens, assumedOutput, kind)
}

// EstimateDefault is Estimate with the configured assumed output for kind.
func (m Model) EstimateDefault(inputTokens int, kind models.Kind) CostEstimate {
	return m.price(inputTokens, m.AssumedOutput(kind), kind)
}

// Actual prices a completed call from its real token counts.
func (m Model) Actual(inputTokens, outputTokens int, kind models.Kind) CostEstimate {
	return m.price(inputTokens, outputTokens, kind)
}

func (m Model) price(in, out int, kind models.Kind) CostEstimate {
	if in < 0 {
		in = 0
	}
	if out < 0 {
		out = 0
	}
	perCredit := m.cfg.TokensPerCredit
	if perCredit <= 0 {
		perCredit = DefaultConfig().TokensPerCredit
	}
	raw := float64(in+out) * m.Multiplier(kind) / perCredit
	return CostEstimate{
		Kind:         kind,
		InputTokens:  in,
		OutputTokens: out,
		Credits:      int64(math.Ceil(raw)),
	}
}

// Total sums the credits of several estimates.
func Total(estimates ...CostEstimate) int64 {
	var sum int64
	for _, e := range estimates {
		sum += e.Credits
	}
	return sum
}
