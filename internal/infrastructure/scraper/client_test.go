package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worthit/backend/internal/domain"
)

func TestNewClient(t *testing.T) {
	client := NewClient(0, 0, 0, nil)

	assert.NotNil(t, client)
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
	assert.EqualValues(t, 2, client.rps)
	assert.Equal(t, 4, client.burst)
	assert.False(t, client.debug)
}

func TestSetDebug(t *testing.T) {
	client := NewClient(time.Second, 10, 1, nil)

	assert.False(t, client.debug)

	client.SetDebug(true)
	assert.True(t, client.debug)

	client.SetDebug(false)
	assert.False(t, client.debug)
}

func TestUserAgent_Rotates(t *testing.T) {
	client := NewClient(time.Second, 10, 1, nil)

	seen := make([]string, 0, len(defaultUserAgents)+1)
	for i := 0; i <= len(defaultUserAgents); i++ {
		seen = append(seen, client.UserAgent())
	}

	assert.Equal(t, defaultUserAgents, seen[:len(defaultUserAgents)])
	assert.Equal(t, seen[0], seen[len(defaultUserAgents)], "rotation wraps around")
}

func TestGet_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "iphone 16", r.URL.Query().Get("q"))
		assert.Contains(t, defaultUserAgents, r.Header.Get("User-Agent"))
		assert.Equal(t, "en-IN,en;q=0.9", r.Header.Get("Accept-Language"))

		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	client := NewClient(time.Second, 100, 10, nil)
	body, err := client.Get(context.Background(), server.URL+"/search?q=iphone+16")

	require.NoError(t, err)
	assert.Contains(t, string(body), "ok")
}

func TestGet_NonOKStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"not found", http.StatusNotFound},
		{"forbidden", http.StatusForbidden},
		{"server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewClient(time.Second, 100, 10, nil)
			client.SetDebug(true)
			body, err := client.Get(context.Background(), server.URL)

			assert.Nil(t, body)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrFetchFailed)
			assert.Contains(t, err.Error(), "status")
		})
	}
}

func TestGet_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(time.Second, 100, 10, nil)
	_, err := client.Get(context.Background(), url)

	assert.ErrorIs(t, err, domain.ErrFetchFailed)
}

func TestGet_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	client := NewClient(5*time.Second, 100, 10, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Get(ctx, server.URL)

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGet_InvalidURL(t *testing.T) {
	client := NewClient(time.Second, 100, 10, nil)

	_, err := client.Get(context.Background(), "://bad url")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse url")
}

func TestGet_PacesPerHost(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	// One token, refilled every 10s: the second request has to wait
	client := NewClient(time.Second, 0.1, 1, nil)
	_, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Get(ctx, server.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
	assert.EqualValues(t, 1, hits.Load())
	assert.Same(t, client.limiterFor(strings.TrimPrefix(server.URL, "http://")), client.limiterFor(strings.TrimPrefix(server.URL, "http://")))
}

func TestReadLimitedBody(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int64
		want  string
	}{
		{"under limit", "hello", 10, "hello"},
		{"at limit", "hello", 5, "hello"},
		{"over limit", "hello world", 5, "hello"},
		{"empty", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readLimitedBody(strings.NewReader(tt.input), tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}
