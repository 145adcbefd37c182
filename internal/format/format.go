// Package format renders money, rates and dates for letters and CLI output,
// and parses the loose date strings found in provider payloads.
package format

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// Currency formats a whole-dollar amount as "$1,234".
func Currency(v float64) string {
	r := math.Round(v)
	if r < 0 {
		return printer.Sprintf("-$%d", int64(-r))
	}
	return printer.Sprintf("$%d", int64(r))
}

// CurrencySigned formats an amount with an explicit sign ("+$1,234", "-$56").
func CurrencySigned(v float64) string {
	if math.Round(v) > 0 {
		return "+" + Currency(v)
	}
	return Currency(v)
}

// RatePercent formats a fractional rate as a percentage with two decimals
// (0.0253 -> "2.53%").
func RatePercent(rate float64) string {
	return printer.Sprintf("%.2f%%", rate*100)
}

// PercentSigned formats a fractional delta in percentage points with a sign.
func PercentSigned(delta float64) string {
	p := delta * 100
	if p > 0 {
		return printer.Sprintf("+%.2f%%", p)
	}
	return printer.Sprintf("%.2f%%", p)
}

// Number formats v with thousands separators and no decimals.
func Number(v float64) string {
	return printer.Sprintf("%d", int64(math.Round(v)))
}

// Date formats t as "January 2, 2006".
func Date(t time.Time) string {
	return t.UTC().Format("January 2, 2006")
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseDate parses the date formats seen in assessment notices and provider
// payloads. Times without a zone are read as UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
