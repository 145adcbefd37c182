// Package letter drafts and renders property tax appeal letters.
package letter

import (
	"math"

	"github.com/sells-group/appeal-cli/internal/model"
	"github.com/sells-group/appeal-cli/internal/valuation"
)

// Context is everything the drafting prompt is built from.
type Context struct {
	Assessment      model.AssessmentExtraction `json:"assessment"`
	Analytics       *valuation.Analytics       `json:"analytics"`
	ValuationSource *string                    `json:"valuationSource"`
	SavingsEstimate *int64                     `json:"savingsEstimate"`
	County          *CountyMetadata            `json:"countyMetadata"`
}

// BuildContext combines an assessment with an optional market valuation
// and county guidance. The savings estimate is the assessed value minus
// the valuation amount, set only when both are known.
func BuildContext(assessment model.AssessmentExtraction, val *valuation.Summary, county *CountyMetadata) Context {
	c := Context{Assessment: assessment, County: county}
	if val == nil {
		return c
	}
	c.Analytics = val.Analytics
	if val.Provider != "" {
		p := val.Provider
		c.ValuationSource = &p
	}
	if assessment.AssessedValue != nil && val.Amount != nil {
		s := int64(math.Round(*assessment.AssessedValue - float64(*val.Amount)))
		c.SavingsEstimate = &s
	}
	return c
}
