package zillow

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    string
		wantStatus int
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body:   `{"props":[{"zpid":"123","price":410000}]}`,
		},
		{
			name:       "error with message",
			status:     http.StatusTooManyRequests,
			body:       `{"message":"You have exceeded the rate limit"}`,
			wantErr:    "You have exceeded the rate limit",
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "error without message",
			status:     http.StatusBadGateway,
			body:       `<html>bad gateway</html>`,
			wantErr:    "zillow API request failed with status 502",
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "non-json success",
			status:     http.StatusOK,
			body:       `not json`,
			wantErr:    "non-JSON response",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/propertyExtendedSearch", r.URL.Path)
				assert.Equal(t, "123 Main St Columbus, OH 43215", r.URL.Query().Get("location"))
				assert.Equal(t, "test-key", r.Header.Get("X-RapidAPI-Key"))
				assert.Equal(t, "zillow-com1.p.rapidapi.com", r.Header.Get("X-RapidAPI-Host"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL+"/"))
			body, err := client.Search(context.Background(), "123 Main St Columbus, OH 43215")

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, tt.wantStatus, apiErr.Status())
				return
			}
			require.NoError(t, err)
			hits := ExtractSearchHits(body)
			require.Len(t, hits, 1)
			assert.Equal(t, "123", HitZpid(hits[0]))
		})
	}
}

func TestProperty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/property", r.URL.Path)
		assert.Equal(t, "987", r.URL.Query().Get("zpid"))
		assert.Equal(t, "true", r.URL.Query().Get("details"))
		assert.Equal(t, "custom.host", r.Header.Get("X-RapidAPI-Host"))
		_, _ = w.Write([]byte(`{"zpid":987,"zestimate":652000}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), WithHost("custom.host"), WithRateLimit(100, 2))
	detail, err := client.Property(context.Background(), "987")
	require.NoError(t, err)
	assert.InDelta(t, 652000, detail["zestimate"], 0.001)
}

func TestProperty_NonObjectBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[1,2,3]`))
	}))
	defer srv.Close()

	detail, err := NewClient("k", WithBaseURL(srv.URL)).Property(context.Background(), "1")
	require.NoError(t, err)
	assert.Nil(t, detail)
}

func TestMissingCredentials(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient("", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))

	_, err := client.Search(context.Background(), "anything")
	assert.True(t, IsMissingCredentials(err))
	_, err = client.Property(context.Background(), "1")
	assert.True(t, errors.Is(err, ErrMissingCredentials))
	assert.Equal(t, int32(0), calls.Load())
}

func TestSearch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Search(ctx, "x")
	require.Error(t, err)
}
