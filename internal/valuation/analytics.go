package valuation

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/appeal-cli/internal/format"
)

const (
	maxTaxHistory = 10
	// rateWindow is how many recent tax years feed the average effective rate.
	rateWindow = 5
)

// TaxHistoryEntry is one normalized year of assessment and tax data.
type TaxHistoryEntry struct {
	Year              int      `json:"year"`
	AssessedValue     *float64 `json:"assessedValue"`
	TaxPaid           *float64 `json:"taxPaid"`
	TaxIncreaseRate   *float64 `json:"taxIncreaseRate"`
	ValueIncreaseRate *float64 `json:"valueIncreaseRate"`
	EffectiveTaxRate  *float64 `json:"effectiveTaxRate"`
}

// LatestTax summarizes the most recent tax year against the one before it.
type LatestTax struct {
	Year               int      `json:"year"`
	AssessedValue      *float64 `json:"assessedValue"`
	TaxPaid            *float64 `json:"taxPaid"`
	EffectiveTaxRate   *float64 `json:"effectiveTaxRate"`
	TaxChangeAmount    *int64   `json:"taxChangeAmount"`
	EffectiveRateDelta *float64 `json:"effectiveRateDelta"`
}

// Range is the upper bound of the provider's estimate band.
type Range struct {
	HighEstimate *int64   `json:"highEstimate"`
	HighPercent  *float64 `json:"highPercent"`
}

// PropertyFacts are the physical attributes reported for the property.
type PropertyFacts struct {
	LivingArea         *float64 `json:"livingArea"`
	Bedrooms           *float64 `json:"bedrooms"`
	Bathrooms          *float64 `json:"bathrooms"`
	PricePerSquareFoot *float64 `json:"pricePerSquareFoot"`
}

// Sale is the most recent "sold" event in the price history.
type Sale struct {
	Price  *float64 `json:"price"`
	Date   *string  `json:"date"`
	Source *string  `json:"source"`
}

// Analytics are the tax figures derived from a property detail payload.
type Analytics struct {
	CountyFIPS               *string           `json:"countyFips"`
	ValuationRange           Range             `json:"valuationRange"`
	TaxHistory               []TaxHistoryEntry `json:"taxHistory"`
	Latest                   *LatestTax        `json:"latest"`
	AverageEffectiveTaxRate  *float64          `json:"averageEffectiveTaxRate"`
	ProjectedTaxAtMarket     *int64            `json:"projectedTaxAtMarket"`
	ProjectedSavingsVsLatest *int64            `json:"projectedSavingsVsLatest"`
	PropertyFacts            PropertyFacts     `json:"propertyFacts"`
	LatestSale               *Sale             `json:"latestSale"`
	// AssessmentRatio is the jurisdiction's statutory assessment ratio,
	// attached by callers that know the county profile.
	AssessmentRatio *float64 `json:"assessmentRatio,omitempty"`
}

// DeriveAnalytics computes tax analytics from a property detail payload.
// It returns nil only when detail is nil; every other field degrades to nil
// independently when its inputs are missing.
func DeriveAnalytics(detail map[string]any, marketValue *int64) *Analytics {
	if detail == nil {
		return nil
	}

	history := ParseTaxHistory(detail)
	a := &Analytics{
		ValuationRange: deriveRange(detail, marketValue),
		TaxHistory:     history,
		PropertyFacts:  derivePropertyFacts(detail),
		LatestSale:     deriveLatestSale(detail),
	}
	if s, ok := nonBlank(detail["countyFIPS"]); ok {
		a.CountyFIPS = &s
	}

	window := history
	if len(window) > rateWindow {
		window = window[:rateWindow]
	}
	rates := make([]*float64, 0, len(window))
	for _, e := range window {
		rates = append(rates, e.EffectiveTaxRate)
	}
	a.AverageEffectiveTaxRate = average(rates)

	if marketValue != nil && a.AverageEffectiveTaxRate != nil {
		a.ProjectedTaxAtMarket = roundInt(float64(*marketValue) * *a.AverageEffectiveTaxRate)
	}

	if len(history) == 0 {
		return a
	}
	latest := history[0]
	if latest.TaxPaid != nil && a.ProjectedTaxAtMarket != nil {
		a.ProjectedSavingsVsLatest = roundInt(*latest.TaxPaid - float64(*a.ProjectedTaxAtMarket))
	}

	lt := &LatestTax{
		Year:             latest.Year,
		AssessedValue:    latest.AssessedValue,
		TaxPaid:          latest.TaxPaid,
		EffectiveTaxRate: latest.EffectiveTaxRate,
	}
	if len(history) > 1 {
		prior := history[1]
		if latest.TaxPaid != nil && prior.TaxPaid != nil {
			lt.TaxChangeAmount = roundInt(*latest.TaxPaid - *prior.TaxPaid)
		}
		if latest.EffectiveTaxRate != nil && prior.EffectiveTaxRate != nil {
			lt.EffectiveRateDelta = float64Ptr(*latest.EffectiveTaxRate - *prior.EffectiveTaxRate)
		}
	}
	a.Latest = lt
	return a
}

// ParseTaxHistory normalizes detail.taxHistory, newest first, capped at ten
// entries. Entries whose year cannot be resolved are dropped. The result is
// never nil.
func ParseTaxHistory(detail map[string]any) []TaxHistoryEntry {
	entries := []TaxHistoryEntry{}
	raw, ok := detail["taxHistory"].([]any)
	if !ok {
		return entries
	}

	for _, item := range raw {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		year, ok := toYear(coalesce(rec, "time", "year"))
		if !ok {
			continue
		}
		e := TaxHistoryEntry{
			Year:              year,
			AssessedValue:     numberPtr(coalesce(rec, "value", "assessedValue")),
			TaxPaid:           numberPtr(coalesce(rec, "taxPaid", "taxAmount")),
			TaxIncreaseRate:   numberPtr(rec["taxIncreaseRate"]),
			ValueIncreaseRate: numberPtr(rec["valueIncreaseRate"]),
		}
		if e.AssessedValue != nil && *e.AssessedValue > 0 && e.TaxPaid != nil {
			e.EffectiveTaxRate = float64Ptr(*e.TaxPaid / *e.AssessedValue)
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Year > entries[j].Year })
	if len(entries) > maxTaxHistory {
		entries = entries[:maxTaxHistory]
	}
	return entries
}

func average(values []*float64) *float64 {
	var sum float64
	var n int
	for _, v := range values {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return nil
	}
	return float64Ptr(sum / float64(n))
}

func deriveRange(detail map[string]any, marketValue *int64) Range {
	r := Range{HighPercent: numberPtr(detail["zestimateHighPercent"])}
	if marketValue == nil || *marketValue == 0 || r.HighPercent == nil {
		return r
	}
	r.HighEstimate = roundInt(float64(*marketValue) * (1 + *r.HighPercent/100))
	return r
}

func derivePropertyFacts(detail map[string]any) PropertyFacts {
	return PropertyFacts{
		LivingArea:         numberPtr(coalesce(detail, "livingAreaValue", "livingArea")),
		Bedrooms:           numberPtr(detail["bedrooms"]),
		Bathrooms:          numberPtr(coalesce(detail, "bathroomsFloat", "bathrooms")),
		PricePerSquareFoot: numberPtr(detail["pricePerSquareFoot"]),
	}
}

type priceEvent struct {
	price     *float64
	timestamp *float64
	date      string
	source    *string
}

// sortKey orders events by numeric time, then parsed date; undated events
// sort last.
func (e priceEvent) sortKey() float64 {
	if e.timestamp != nil {
		return *e.timestamp
	}
	if t, ok := format.ParseDate(e.date); ok {
		return float64(t.UnixMilli())
	}
	return math.Inf(-1)
}

func deriveLatestSale(detail map[string]any) *Sale {
	raw, ok := detail["priceHistory"].([]any)
	if !ok {
		return nil
	}

	var sales []priceEvent
	for _, item := range raw {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		event, ok := str(rec["event"])
		if !ok || !strings.Contains(strings.ToLower(event), "sold") {
			continue
		}
		ev := priceEvent{
			price:     numberPtr(rec["price"]),
			timestamp: numberPtr(rec["time"]),
		}
		if d, ok := str(rec["date"]); ok {
			ev.date = strings.TrimSpace(d)
		}
		if s, ok := str(rec["source"]); ok {
			s = strings.TrimSpace(s)
			ev.source = &s
		}
		sales = append(sales, ev)
	}
	if len(sales) == 0 {
		return nil
	}

	sort.SliceStable(sales, func(i, j int) bool { return sales[i].sortKey() > sales[j].sortKey() })
	latest := sales[0]

	sale := &Sale{Price: latest.price, Source: latest.source}
	if t, ok := format.ParseDate(latest.date); ok {
		iso := t.Format(time.RFC3339)
		sale.Date = &iso
	} else if latest.timestamp != nil {
		iso := time.UnixMilli(int64(*latest.timestamp)).UTC().Format(time.RFC3339)
		sale.Date = &iso
	}
	return sale
}
