// Package tax serves jurisdiction tax settings with a short-lived cache.
package tax

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// DefaultTTL is how long a looked-up ratio is reused.
const DefaultTTL = 5 * time.Minute

// RatioSource loads a county's default assessment ratio. A nil ratio
// means the county has no profile or no ratio.
type RatioSource interface {
	GetAssessmentRatio(ctx context.Context, fips string) (*float64, error)
}

type entry struct {
	ratio     *float64
	expiresAt time.Time
}

// Profiles caches assessment ratios by FIPS code. Misses are cached too.
type Profiles struct {
	src RatioSource
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

// NewProfiles creates a Profiles cache. ttl <= 0 uses DefaultTTL.
func NewProfiles(src RatioSource, ttl time.Duration) *Profiles {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Profiles{src: src, ttl: ttl, now: time.Now, entries: make(map[string]entry)}
}

// AssessmentRatio returns the default assessment ratio for a county.
// A blank fips returns nil without a lookup.
func (p *Profiles) AssessmentRatio(ctx context.Context, fips string) (*float64, error) {
	fips = strings.TrimSpace(fips)
	if fips == "" {
		return nil, nil
	}

	now := p.now()
	p.mu.Lock()
	e, ok := p.entries[fips]
	p.mu.Unlock()
	if ok && e.expiresAt.After(now) {
		return e.ratio, nil
	}

	ratio, err := p.src.GetAssessmentRatio(ctx, fips)
	if err != nil {
		return nil, eris.Wrapf(err, "tax: assessment ratio for %s", fips)
	}

	p.mu.Lock()
	p.entries[fips] = entry{ratio: ratio, expiresAt: now.Add(p.ttl)}
	p.mu.Unlock()
	return ratio, nil
}

// Clear drops every cached ratio.
func (p *Profiles) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = make(map[string]entry)
}
