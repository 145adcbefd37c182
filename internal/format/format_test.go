package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCurrency(t *testing.T) {
	assert.Equal(t, "$405,123", Currency(405123))
	assert.Equal(t, "$0", Currency(0.4))
	assert.Equal(t, "-$128", Currency(-128))
	assert.Equal(t, "$1,000,001", Currency(1000000.6))
}

func TestCurrencySigned(t *testing.T) {
	assert.Equal(t, "+$500", CurrencySigned(500))
	assert.Equal(t, "-$128", CurrencySigned(-128))
	assert.Equal(t, "$0", CurrencySigned(0))
}

func TestRates(t *testing.T) {
	assert.Equal(t, "2.50%", RatePercent(0.025))
	assert.Equal(t, "+0.15%", PercentSigned(0.0015))
	assert.Equal(t, "-0.50%", PercentSigned(-0.005))
	assert.Equal(t, "2,100", Number(2100))
}

func TestDate(t *testing.T) {
	assert.Equal(t, "May 10, 2025", Date(time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2025-05-10T00:00:00Z", time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC), true},
		{"2025-05-10", time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC), true},
		{"05/10/2025", time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC), true},
		{"March 1, 2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024-03-01T12:00:00-05:00", time.Date(2024, 3, 1, 17, 0, 0, 0, time.UTC), true},
		{"not a date", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}
