package valuation

import (
	"strings"
	"time"

	"github.com/sells-group/appeal-cli/internal/format"
)

// DefaultCurrency is used when no payload names a currency.
const DefaultCurrency = "USD"

// DeriveAmount returns the market value estimate, trying the detail's
// zestimate, homeValue, price and details.price, then the search hit's
// zestimate and price. The first usable number wins, rounded to whole units.
func DeriveAmount(hit, detail map[string]any) *int64 {
	candidates := []any{
		field(detail, "zestimate"),
		field(detail, "homeValue"),
		field(detail, "price"),
		field(object(detail, "details"), "price"),
		field(hit, "zestimate"),
		field(hit, "price"),
	}
	for _, c := range candidates {
		if f, ok := toNumber(c); ok {
			if n := roundInt(f); n != nil {
				return n
			}
		}
	}
	return nil
}

// DeriveCurrency returns the first non-blank currency code, upper-cased,
// defaulting to USD.
func DeriveCurrency(hit, detail map[string]any) string {
	candidates := []any{
		field(detail, "currency"),
		field(object(detail, "details"), "currency"),
		field(hit, "currency"),
	}
	for _, c := range candidates {
		if s, ok := nonBlank(c); ok {
			return strings.ToUpper(s)
		}
	}
	return DefaultCurrency
}

// DeriveConfidence returns details.confidence when it is a string.
func DeriveConfidence(detail map[string]any) *string {
	if s, ok := str(field(object(detail, "details"), "confidence")); ok {
		return &s
	}
	return nil
}

// DeriveValuationDate returns details.valuationDate when it parses as a date.
func DeriveValuationDate(detail map[string]any) *time.Time {
	s, ok := str(field(object(detail, "details"), "valuationDate"))
	if !ok {
		return nil
	}
	if t, ok := format.ParseDate(s); ok {
		return &t
	}
	return nil
}

func field(rec map[string]any, key string) any {
	if rec == nil {
		return nil
	}
	return rec[key]
}
