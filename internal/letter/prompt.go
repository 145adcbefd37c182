package letter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/appeal-cli/internal/format"
)

const unknown = "Unknown"

func orUnknown(s *string) string {
	if s == nil || *s == "" {
		return unknown
	}
	return *s
}

func moneyOrUnknown[T ~int64 | ~float64](v *T) string {
	if v == nil {
		return unknown
	}
	return format.Currency(float64(*v))
}

// Prompt renders the context as the labelled lines the drafting model reads.
func Prompt(c Context) string {
	a := c.Assessment
	var lines []string
	add := func(f string, args ...any) {
		lines = append(lines, fmt.Sprintf(f, args...))
	}

	add("Owner Name: %s", orUnknown(a.OwnerName))
	add("Parcel / Property ID: %s", orUnknown(a.ParcelID))
	add("Property Address: %s", orUnknown(a.PropertyAddress))
	add("Assessed Value: %s", moneyOrUnknown(a.AssessedValue))
	add("Market Value: %s", moneyOrUnknown(a.MarketValue))
	add("Valuation Source: %s", orUnknown(c.ValuationSource))
	add("Estimated Savings: %s", moneyOrUnknown(c.SavingsEstimate))
	add("Tax Year: %s", orUnknown(a.TaxYear))
	add("Notice Date: %s", orUnknown(a.AssessmentDate))
	add("Appeal Deadline: %s", orUnknown(a.AppealDeadline))
	if a.Notes != nil && *a.Notes != "" {
		add("Additional Notes: %s", *a.Notes)
	}

	if an := c.Analytics; an != nil {
		add("Zillow Analytics:")
		if an.ProjectedSavingsVsLatest != nil {
			add("  Projected Savings vs Latest Tax Bill: %s", format.Currency(float64(*an.ProjectedSavingsVsLatest)))
		}
		if an.ProjectedTaxAtMarket != nil {
			add("  Projected Tax at Market Value: %s", format.Currency(float64(*an.ProjectedTaxAtMarket)))
		}
		if an.AverageEffectiveTaxRate != nil {
			add("  Average Effective Tax Rate: %s", format.RatePercent(*an.AverageEffectiveTaxRate))
		}
		if an.AssessmentRatio != nil {
			add("  County Assessment Ratio: %s", format.RatePercent(*an.AssessmentRatio))
		}
		if len(an.TaxHistory) > 0 {
			add("  Recent Tax History:")
			for i, e := range an.TaxHistory {
				if i == 3 {
					break
				}
				add("    Year %d: assessed=%s, taxPaid=%s", e.Year, moneyOrUnknown(e.AssessedValue), moneyOrUnknown(e.TaxPaid))
			}
		}
	}

	if m := c.County; m != nil {
		add("County Guidance:")
		add("  Jurisdiction: %s", m.Jurisdiction)
		if m.PrimaryAuthority != nil {
			add("  Primary Authority: %s", *m.PrimaryAuthority)
		}
		if w := m.FilingWindow; w != nil {
			add("  Filing Window: start=%s, end=%s", orNA(w.Start), orNA(w.End))
			if w.Notes != nil && *w.Notes != "" {
				add("  Filing Notes: %s", *w.Notes)
			}
		}
		keys := make([]string, 0, len(m.AlternateWindows))
		for k := range m.AlternateWindows {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			w := m.AlternateWindows[k]
			notes := "see calendar"
			if w.Notes != nil {
				notes = *w.Notes
			}
			add("  %s window: %s", k, notes)
			if w.CalendarURL != nil {
				add("    Calendar: %s", *w.CalendarURL)
			}
		}
		if len(m.SubmissionChannels) > 0 {
			add("  Submission Channels:")
			for i, ch := range m.SubmissionChannels {
				if i == 4 {
					break
				}
				details := joinNonEmpty(" | ", ch.Label, ch.Value, ch.Address, ch.URL)
				if details != "" {
					add("    - %s: %s", ch.Type, details)
				} else {
					add("    - %s", ch.Type)
				}
			}
		}
		if len(m.Forms) > 0 {
			add("  Common Forms:")
			for i, f := range m.Forms {
				if i == 3 {
					break
				}
				add("    - %s: %s", f.Name, f.URL)
			}
		}
		if m.Notes != nil && *m.Notes != "" {
			add("  County Notes: %s", *m.Notes)
		}
	}

	return strings.Join(lines, "\n")
}

func orNA(s *string) string {
	if s == nil {
		return "n/a"
	}
	return *s
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
