package request

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfspeak/pkg/cache"
	"pdfspeak/pkg/db"
	"pdfspeak/pkg/tracker"
)

func fastOptions(retries int) Options {
	return Options{
		Timeout:   5 * time.Second,
		Retries:   retries,
		BaseDelay: time.Millisecond,
		MaxDelay:  5 * time.Millisecond,
	}
}

func hostOf(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Host
}

func TestPost_Retry(t *testing.T) {
	var attempts int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("success"))
	}))
	defer svr.Close()

	tr := tracker.New()
	client := New(nil, tr, fastOptions(3))

	body, err := client.PostWithCache(context.Background(), svr.URL, nil, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "success", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))

	stats := tr.Snapshot()[hostOf(t, svr.URL)]
	assert.Equal(t, int64(1), stats.APISuccess)
	assert.Equal(t, int64(0), stats.APIFailures)
}

func TestPost_StatusHandling(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		retries      int
		wantAttempts int32
	}{
		{"NoRetries_ServerError", http.StatusInternalServerError, 0, 1},
		{"Retries_ServerError", http.StatusBadGateway, 2, 3},
		{"Retries_RateLimited", http.StatusTooManyRequests, 1, 2},
		{"ClientError_NotRetried", http.StatusBadRequest, 3, 1},
		{"Forbidden_NotRetried", http.StatusForbidden, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts int32
			svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&attempts, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("nope"))
			}))
			defer svr.Close()

			tr := tracker.New()
			client := New(nil, tr, fastOptions(tt.retries))

			_, err := client.PostWithCache(context.Background(), svr.URL, nil, nil, "")
			require.Error(t, err)

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr), "want *StatusError, got %T", err)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, "nope", statusErr.Body)
			assert.Equal(t, tt.wantAttempts, atomic.LoadInt32(&attempts))
			assert.Equal(t, int64(1), tr.Snapshot()[hostOf(t, svr.URL)].APIFailures)
		})
	}
}

func TestPost_Cache(t *testing.T) {
	var attempts int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		_, _ = w.Write([]byte("payload"))
	}))
	defer svr.Close()

	d, err := db.Init(filepath.Join(t.TempDir(), "client_test.db"))
	require.NoError(t, err)
	defer d.Close()

	tr := tracker.New()
	client := New(cache.NewSQLiteCache(d), tr, fastOptions(0))

	for i := 0; i < 2; i++ {
		body, err := client.PostWithCache(context.Background(), svr.URL, nil, nil, "test_key")
		require.NoError(t, err)
		assert.Equal(t, "payload", string(body))
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts), "second call should be served from cache")
	stats := tr.Snapshot()[hostOf(t, svr.URL)]
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)
}

func TestPostWithCache_SendsBodyAndHeaders(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q", got)
		}
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "pdfspeak/") {
			t.Errorf("User-Agent = %q, want pdfspeak/ prefix", ua)
		}
		b, _ := io.ReadAll(r.Body)
		_, _ = w.Write(append([]byte("echo:"), b...))
	}))
	defer svr.Close()

	client := New(nil, nil, fastOptions(0))
	body, err := client.PostWithCache(context.Background(), svr.URL, []byte("a=1"),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"}, "")
	require.NoError(t, err)
	assert.Equal(t, "echo:a=1", string(body))
}

func TestPost_CustomUserAgent(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("User-Agent")))
	}))
	defer svr.Close()

	client := New(nil, nil, fastOptions(0))
	body, err := client.PostWithCache(context.Background(), svr.URL, nil, map[string]string{"User-Agent": "custom"}, "")
	require.NoError(t, err)
	assert.Equal(t, "custom", string(body))
}

func TestPost_ContextCancelled(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer svr.Close()

	client := New(nil, nil, Options{Retries: 5, BaseDelay: time.Second, MaxDelay: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.PostWithCache(ctx, svr.URL, nil, nil, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPost_InvalidURL(t *testing.T) {
	client := New(nil, nil, fastOptions(0))
	_, err := client.PostWithCache(context.Background(), "://bad", nil, nil, "")
	assert.Error(t, err)
}
