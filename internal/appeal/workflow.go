// Package appeal runs the upload, parse and letter workflows that sit
// behind the HTTP API and CLI.
package appeal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/appeal-cli/internal/assessment"
	"github.com/sells-group/appeal-cli/internal/config"
	"github.com/sells-group/appeal-cli/internal/cost"
	"github.com/sells-group/appeal-cli/internal/letter"
	"github.com/sells-group/appeal-cli/internal/resilience"
	"github.com/sells-group/appeal-cli/internal/storage"
	"github.com/sells-group/appeal-cli/internal/store"
	"github.com/sells-group/appeal-cli/internal/valuation"
)

// Parser turns a signed PDF URL into extracted assessment fields.
type Parser interface {
	Parse(ctx context.Context, signedURL, modelOverride string) (*assessment.Result, error)
}

// Valuations looks up a market valuation for an address.
type Valuations interface {
	Lookup(ctx context.Context, raw string, opts ...valuation.LookupOption) (*valuation.Valuation, error)
}

// Ratios returns the statutory assessment ratio for a county FIPS code.
type Ratios interface {
	AssessmentRatio(ctx context.Context, fips string) (*float64, error)
}

// Letters drafts appeal letter sections.
type Letters interface {
	Generate(ctx context.Context, c letter.Context, modelOverride string) (*letter.Draft, error)
}

// Workflow wires persistence, storage and vendor clients together. A nil
// parser or letters dependency means its credentials are not configured.
type Workflow struct {
	cfg        *config.Config
	store      store.Store
	docs       storage.Storage
	parser     Parser
	valuations Valuations
	ratios     Ratios
	counties   *letter.Counties
	letters    Letters
	costCalc   *cost.Calculator
	retry      resilience.RetryConfig
	breaker    *resilience.CircuitBreaker

	now   func() time.Time
	newID func() string
}

// New creates a Workflow.
func New(
	cfg *config.Config,
	st store.Store,
	docs storage.Storage,
	parser Parser,
	valuations Valuations,
	ratios Ratios,
	counties *letter.Counties,
	letters Letters,
) *Workflow {
	v := cfg.Valuation
	retry := resilience.DefaultRetryConfig()
	if v.MaxAttempts > 0 {
		retry.MaxAttempts = v.MaxAttempts
	}
	if v.InitialBackoffMs > 0 {
		retry.InitialBackoff = time.Duration(v.InitialBackoffMs) * time.Millisecond
	}
	if v.MaxBackoffMs > 0 {
		retry.MaxBackoff = time.Duration(v.MaxBackoffMs) * time.Millisecond
	}
	retry.JitterFraction = v.Jitter
	retry.OnRetry = resilience.RetryLogger("zillow", "valuation lookup")

	return &Workflow{
		cfg:        cfg,
		store:      st,
		docs:       docs,
		parser:     parser,
		valuations: valuations,
		ratios:     ratios,
		counties:   counties,
		letters:    letters,
		costCalc:   cost.NewCalculator(cfg.Pricing),
		retry:      retry,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:             "zillow",
			FailureThreshold: v.BreakerFailures,
			ResetTimeout:     time.Duration(v.BreakerResetSecs) * time.Second,
		}),
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// Bucket is the storage bucket documents are written to.
func (w *Workflow) Bucket() string { return w.docs.Bucket() }

func ttl(secs, fallback int) time.Duration {
	if secs <= 0 {
		secs = fallback
	}
	return time.Duration(secs) * time.Second
}
