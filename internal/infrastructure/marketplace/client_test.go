package marketplace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/backend/internal/domain"
)

func newTestClient(baseURL string) *Client {
	c := NewClient(ClientConfig{
		Token:             "test-token",
		BaseURL:           baseURL,
		PageWait:          5 * time.Second,
		AjaxWait:          true,
		RequestsPerSecond: 1000,
		Burst:             10,
		MaxRetries:        3,
	}, nil)
	c.backoff = func(int) time.Duration { return 0 }
	return c
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(ClientConfig{Token: "t", BaseURL: "https://api.example.com"}, nil)

	assert.Equal(t, "t", client.token)
	assert.Equal(t, "https://api.example.com", client.baseURL)
	assert.Equal(t, 3, client.maxRetries)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.rateLimiter)
	assert.NotNil(t, client.logger)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestFetchPage_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/", r.URL.Path)
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))
		assert.Equal(t, "https://www.tokopedia.com/search?q=x", r.URL.Query().Get("url"))
		assert.Equal(t, "true", r.URL.Query().Get("ajax_wait"))
		assert.Equal(t, "5000", r.URL.Query().Get("page_wait"))

		w.Header().Set("pc_status", "200")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	body, err := client.FetchPage(context.Background(), "https://www.tokopedia.com/search?q=x")

	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", string(body))
}

func TestFetchPage_RetriesFailedCrawl(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.Header().Set("pc_status", "520")
			w.Write([]byte("blocked"))
			return
		}
		w.Header().Set("pc_status", "200")
		w.Write([]byte("rendered"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	body, err := client.FetchPage(context.Background(), "https://shopee.co.id/x")

	require.NoError(t, err)
	assert.Equal(t, "rendered", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchPage_ServerErrorExhaustsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchPage(context.Background(), "https://shopee.co.id/x")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCrawlerFailure)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchPage_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchPage(context.Background(), "https://shopee.co.id/x")

	assert.ErrorIs(t, err, domain.ErrCrawlerFailure)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchPage_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("late"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(server.URL)
	_, err := client.FetchPage(ctx, "https://shopee.co.id/x")

	assert.Error(t, err)
}
