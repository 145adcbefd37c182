// Package valuation looks up third-party market valuations for an address
// and derives the tax analytics used to argue an appeal.
package valuation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/appeal-cli/internal/address"
	"github.com/sells-group/appeal-cli/pkg/zillow"
)

// Provider is the provider name recorded on every valuation.
const Provider = "zillow"

// Valuation is a composed lookup result. Cached values are shared between
// callers and must be treated as read-only.
type Valuation struct {
	Provider       string         `json:"provider"`
	Zpid           *string        `json:"zpid"`
	Amount         *int64         `json:"amount"`
	Currency       string         `json:"currency"`
	Confidence     *string        `json:"confidence"`
	ValuationDate  *time.Time     `json:"valuationDate"`
	SearchHit      map[string]any `json:"searchHit"`
	PropertyDetail map[string]any `json:"propertyDetail"`
	Analytics      *Analytics     `json:"analytics"`
}

// Service orchestrates normalization, cache, search and detail calls.
type Service struct {
	client zillow.Client
	cache  *Cache
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSharedCache makes the service use c instead of a private cache.
func WithSharedCache(c *Cache) ServiceOption {
	return func(s *Service) {
		s.cache = c
	}
}

// NewService creates a lookup service backed by client.
func NewService(client zillow.Client, opts ...ServiceOption) *Service {
	s := &Service{client: client, cache: NewCache()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Cache returns the service's lookup cache.
func (s *Service) Cache() *Cache {
	return s.cache
}

type lookupConfig struct {
	useCache bool
}

// LookupOption configures a single Lookup call.
type LookupOption func(*lookupConfig)

// WithCache enables (the default) or bypasses the cache read. Results are
// stored either way.
func WithCache(enabled bool) LookupOption {
	return func(c *lookupConfig) {
		c.useCache = enabled
	}
}

// Lookup resolves a valuation for a raw address. It returns nil with no error
// when the address yields no query or the search yields no hit. Search errors
// and detail errors other than missing credentials are returned unchanged;
// Lookup never retries.
func (s *Service) Lookup(ctx context.Context, raw string, opts ...LookupOption) (*Valuation, error) {
	cfg := lookupConfig{useCache: true}
	for _, o := range opts {
		o(&cfg)
	}

	var cacheKey, query string
	if comps, ok := address.Normalize(raw); ok {
		cacheKey = CacheKey(comps)
		query = comps.Query()
	} else {
		query = address.Collapse(raw)
	}

	if cacheKey != "" && cfg.useCache {
		if v, ok := s.cache.Get(cacheKey); ok {
			zap.L().Debug("valuation: cache hit", zap.String("key", cacheKey))
			return v, nil
		}
	}

	if query == "" {
		return nil, nil
	}

	resp, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	hit := zillow.BestHit(zillow.ExtractSearchHits(resp))
	if hit == nil {
		zap.L().Debug("valuation: no search hit", zap.String("query", query))
		return nil, nil
	}

	var zpid *string
	var detail map[string]any
	if z := zillow.HitZpid(hit); z != "" {
		zpid = &z
		detail, err = s.client.Property(ctx, z)
		if err != nil {
			if !zillow.IsMissingCredentials(err) {
				return nil, err
			}
			zap.L().Warn("valuation: property detail skipped, credentials missing", zap.String("zpid", z))
			detail = nil
		}
	}

	amount := DeriveAmount(hit, detail)
	v := &Valuation{
		Provider:       Provider,
		Zpid:           zpid,
		Amount:         amount,
		Currency:       DeriveCurrency(hit, detail),
		Confidence:     DeriveConfidence(detail),
		ValuationDate:  DeriveValuationDate(detail),
		SearchHit:      hit,
		PropertyDetail: detail,
		Analytics:      DeriveAnalytics(detail, amount),
	}

	if cacheKey != "" {
		s.cache.Set(cacheKey, v)
	}
	return v, nil
}
