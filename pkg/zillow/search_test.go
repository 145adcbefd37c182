package zillow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func zpids(hits []map[string]any) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, HitZpid(h))
	}
	return out
}

func TestExtractSearchHits(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "direct object",
			body: `{"zpid":33998887,"address":"1 A St","props":[{"zpid":"9"}]}`,
			want: []string{"33998887"},
		},
		{
			name: "props array",
			body: `{"props":[{"zpid":"1"},{"zpid":"2"},{"zpid":"1"},{"nothing":true}],"totalResultCount":3}`,
			want: []string{"1", "2"},
		},
		{
			name: "results array",
			body: `{"results":[{"zpid":7,"price":"$100"}]}`,
			want: []string{"7"},
		},
		{
			name: "props wins over results",
			body: `{"results":[{"zpid":"r"}],"props":[{"zpid":"p"}]}`,
			want: []string{"p"},
		},
		{
			name: "body props",
			body: `{"body":{"props":[{"zpid":"b1"}]}}`,
			want: []string{"b1"},
		},
		{
			name: "body object",
			body: `{"body":{"zpid":"b2","price":1}}`,
			want: []string{"b2"},
		},
		{
			name: "top-level array",
			body: `[{"zpid":"a"},{"zpid":"b"}]`,
			want: []string{"a", "b"},
		},
		{
			name: "fallback scan sorted keys",
			body: `{"data":{"b":{"list":[{"zpid":"x"}]},"a":{"zpid":"y"}}}`,
			want: []string{"y", "x"},
		},
		{
			name: "fallback scan depth capped",
			body: `{"a":{"b":{"c":{"d":{"e":{"zpid":"deep"}}}}}}`,
			want: []string{},
		},
		{
			name: "empty props falls through",
			body: `{"props":[],"meta":{"address":"5 Oak Ln"}}`,
			want: []string{""},
		},
		{
			name: "no hits",
			body: `{"message":"nothing"}`,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := ExtractSearchHits(decode(t, tt.body))
			assert.Equal(t, tt.want, zpids(hits))
		})
	}
}

func TestIsSearchHit(t *testing.T) {
	assert.True(t, IsSearchHit(map[string]any{"zpid": "1"}))
	assert.True(t, IsSearchHit(map[string]any{"zpid": float64(1)}))
	assert.True(t, IsSearchHit(map[string]any{"address": "12 Elm"}))
	assert.True(t, IsSearchHit(map[string]any{"price": float64(0)}))
	assert.True(t, IsSearchHit(map[string]any{"price": "$1"}))
	assert.False(t, IsSearchHit(map[string]any{"address": "  "}))
	assert.False(t, IsSearchHit(map[string]any{"price": " "}))
	assert.False(t, IsSearchHit(map[string]any{"zpid": nil}))
	assert.False(t, IsSearchHit(nil))
}

func TestBestHit(t *testing.T) {
	a := map[string]any{"address": "no zpid"}
	b := map[string]any{"zpid": "2"}
	assert.Equal(t, b, BestHit([]map[string]any{a, b}))
	assert.Equal(t, a, BestHit([]map[string]any{a}))
	assert.Nil(t, BestHit(nil))
}
