package tax

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	ratios map[string]float64
	calls  map[string]int
	err    error
}

func (s *countingSource) GetAssessmentRatio(_ context.Context, fips string) (*float64, error) {
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[fips]++
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.ratios[fips]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func TestAssessmentRatio_Caches(t *testing.T) {
	src := &countingSource{ratios: map[string]float64{"39049": 0.35}}
	p := NewProfiles(src, 0)
	ctx := context.Background()

	r, err := p.AssessmentRatio(ctx, " 39049 ")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.InDelta(t, 0.35, *r, 1e-9)

	_, err = p.AssessmentRatio(ctx, "39049")
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls["39049"])
}

func TestAssessmentRatio_CachesMisses(t *testing.T) {
	src := &countingSource{}
	p := NewProfiles(src, time.Minute)

	for range 3 {
		r, err := p.AssessmentRatio(context.Background(), "17031")
		require.NoError(t, err)
		assert.Nil(t, r)
	}
	assert.Equal(t, 1, src.calls["17031"])
}

func TestAssessmentRatio_Expires(t *testing.T) {
	src := &countingSource{ratios: map[string]float64{"48453": 1}}
	p := NewProfiles(src, time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	_, err := p.AssessmentRatio(context.Background(), "48453")
	require.NoError(t, err)
	now = now.Add(59 * time.Second)
	_, err = p.AssessmentRatio(context.Background(), "48453")
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls["48453"])

	now = now.Add(2 * time.Second)
	_, err = p.AssessmentRatio(context.Background(), "48453")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls["48453"])
}

func TestAssessmentRatio_Blank(t *testing.T) {
	src := &countingSource{}
	r, err := NewProfiles(src, 0).AssessmentRatio(context.Background(), "  ")
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Empty(t, src.calls)
}

func TestAssessmentRatio_ErrorNotCached(t *testing.T) {
	src := &countingSource{err: errors.New("db down")}
	p := NewProfiles(src, 0)

	_, err := p.AssessmentRatio(context.Background(), "39049")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tax: assessment ratio for 39049")

	src.err = nil
	_, err = p.AssessmentRatio(context.Background(), "39049")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls["39049"])
}

func TestClear(t *testing.T) {
	src := &countingSource{ratios: map[string]float64{"39049": 0.35}}
	p := NewProfiles(src, 0)

	_, _ = p.AssessmentRatio(context.Background(), "39049")
	p.Clear()
	_, _ = p.AssessmentRatio(context.Background(), "39049")
	assert.Equal(t, 2, src.calls["39049"])
}
