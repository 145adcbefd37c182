// Package cost estimates what a parse or letter run spent on vendors.
package cost

import (
	"github.com/sells-group/appeal-cli/internal/config"
	"github.com/sells-group/appeal-cli/internal/model"
)

// Calculator computes costs for API usage.
type Calculator struct {
	models    map[string]config.ModelPricing
	perCredit float64
}

// NewCalculator creates a Calculator. Models missing from cfg fall back
// to DefaultModels.
func NewCalculator(cfg config.PricingConfig) *Calculator {
	models := DefaultModels()
	for name, rate := range cfg.Models {
		models[name] = rate
	}
	return &Calculator{models: models, perCredit: cfg.PDFCoPerCredit}
}

// Tokens computes the cost of one LLM call. Unknown models cost 0.
func (c *Calculator) Tokens(u model.TokenUsage) float64 {
	rate, ok := c.models[u.Model]
	if !ok {
		return 0
	}
	return (deref(u.InputTokens)/1e6)*rate.Input + (deref(u.OutputTokens)/1e6)*rate.Output
}

// PDFCo computes the cost of the credits a conversion consumed.
func (c *Calculator) PDFCo(credits *int64) float64 {
	return deref(credits) * c.perCredit
}

func deref(v *int64) float64 {
	if v == nil {
		return 0
	}
	return float64(*v)
}

// DefaultModels returns list prices for the configured extraction and
// letter models.
func DefaultModels() map[string]config.ModelPricing {
	return map[string]config.ModelPricing{
		"gpt-4o-mini-2024-07-18":     {Input: 0.15, Output: 0.60},
		"gpt-4.1-mini":               {Input: 0.40, Output: 1.60},
		"gpt-4.1":                    {Input: 2.00, Output: 8.00},
		"claude-haiku-4-5-20251001":  {Input: 1.00, Output: 5.00},
		"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
	}
}
