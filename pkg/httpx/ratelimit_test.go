package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/praxishq/praxis-auth/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func getFrom(t *testing.T, h http.Handler, remoteAddr, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIPKeyExtractor(t *testing.T) {
	t.Run("falls back to RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		require.Equal(t, "192.168.1.1", httpx.IPKeyExtractor(req))
	})

	t.Run("prefers first X-Forwarded-For hop", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")
		require.Equal(t, "203.0.113.1", httpx.IPKeyExtractor(req))
	})

	t.Run("uses X-Real-IP when X-Forwarded-For absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Real-IP", "203.0.113.2")
		require.Equal(t, "203.0.113.2", httpx.IPKeyExtractor(req))
	})
}

func TestFormFieldKeyExtractor(t *testing.T) {
	extract := httpx.FormFieldKeyExtractor("client_id")

	t.Run("query parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?client_id=web-app", nil)
		require.Equal(t, "web-app", extract(req))
	})

	t.Run("form body", func(t *testing.T) {
		form := url.Values{"client_id": {"reporting-job"}}
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		require.Equal(t, "reporting-job", extract(req))
	})

	t.Run("missing field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		require.Empty(t, extract(req))
	})
}

func TestCompositeKeyExtractor(t *testing.T) {
	extract := httpx.CompositeKeyExtractor(":",
		httpx.IPKeyExtractor,
		httpx.FormFieldKeyExtractor("client_id"),
	)

	req := httptest.NewRequest(http.MethodGet, "/?client_id=web-app", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1:web-app", extract(req))

	// Empty components are dropped rather than leaving a dangling separator.
	bare := httptest.NewRequest(http.MethodGet, "/", nil)
	bare.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1", extract(bare))
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("blocks once the bucket is drained", func(t *testing.T) {
		limited := httpx.RateLimitMiddleware(httpx.RateLimitConfig{
			RequestsPerWindow: 3,
			Window:            time.Minute,
			Burst:             3,
		}, httpx.IPKeyExtractor)(okHandler())

		for i := range 3 {
			rec := getFrom(t, limited, "192.168.1.1:12345", "/")
			require.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
		}

		rec := getFrom(t, limited, "192.168.1.1:12345", "/")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
		require.Contains(t, rec.Body.String(), "rate_limit_exceeded")
	})

	t.Run("keys are tracked independently", func(t *testing.T) {
		limited := httpx.RateLimitMiddleware(httpx.RateLimitConfig{
			RequestsPerWindow: 1,
			Window:            time.Minute,
			Burst:             1,
		}, httpx.IPKeyExtractor)(okHandler())

		require.Equal(t, http.StatusOK, getFrom(t, limited, "192.168.1.1:12345", "/").Code)
		require.Equal(t, http.StatusTooManyRequests, getFrom(t, limited, "192.168.1.1:12345", "/").Code)
		require.Equal(t, http.StatusOK, getFrom(t, limited, "192.168.1.2:12345", "/").Code)
	})

	t.Run("empty key passes through unthrottled", func(t *testing.T) {
		noKey := func(*http.Request) string { return "" }
		limited := httpx.RateLimitMiddleware(httpx.RateLimitConfig{
			RequestsPerWindow: 1,
			Window:            time.Minute,
			Burst:             1,
		}, noKey)(okHandler())

		for range 3 {
			require.Equal(t, http.StatusOK, getFrom(t, limited, "192.168.1.1:12345", "/").Code)
		}
	})
}

func TestRateLimitByIPAndFormField(t *testing.T) {
	limited := httpx.RateLimitByIPAndFormField(httpx.RateLimitConfig{
		RequestsPerWindow: 2,
		Window:            time.Minute,
		Burst:             2,
	}, "client_id")(okHandler())

	for range 2 {
		rec := getFrom(t, limited, "192.168.1.1:12345", "/?client_id=web-app")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Equal(t, http.StatusTooManyRequests,
		getFrom(t, limited, "192.168.1.1:12345", "/?client_id=web-app").Code)

	// A different client behind the same IP keeps its own budget.
	require.Equal(t, http.StatusOK,
		getFrom(t, limited, "192.168.1.1:12345", "/?client_id=reporting-job").Code)
}

func TestRateLimitProfiles(t *testing.T) {
	for name, config := range map[string]httpx.RateLimitConfig{
		"strict":   httpx.StrictLimit,
		"moderate": httpx.ModerateLimit,
		"lenient":  httpx.LenientLimit,
	} {
		t.Run(name, func(t *testing.T) {
			require.Positive(t, config.RequestsPerWindow)
			require.Positive(t, config.Window)
			require.Positive(t, config.Burst)
		})
	}

	require.Less(t, httpx.StrictLimit.RequestsPerWindow, httpx.ModerateLimit.RequestsPerWindow)
	require.Less(t, httpx.ModerateLimit.RequestsPerWindow, httpx.LenientLimit.RequestsPerWindow)
}

func TestParseRateLimitFromEnv(t *testing.T) {
	t.Setenv("RATELIMIT_CUSTOM_REQUESTS", "7")
	t.Setenv("RATELIMIT_CUSTOM_WINDOW_SEC", "30")
	t.Setenv("RATELIMIT_CUSTOM_BURST", "9")

	got := httpx.ParseRateLimitFromEnv("CUSTOM", httpx.RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Minute,
		Burst:             1,
	})

	require.Equal(t, 7, got.RequestsPerWindow)
	require.Equal(t, 30*time.Second, got.Window)
	require.Equal(t, 9, got.Burst)

	t.Setenv("RATELIMIT_CUSTOM_REQUESTS", "not-a-number")
	got = httpx.ParseRateLimitFromEnv("CUSTOM", httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1})
	require.Equal(t, 1, got.RequestsPerWindow, "malformed values keep the default")
}

func BenchmarkRateLimitMiddleware(b *testing.B) {
	limited := httpx.RateLimitMiddleware(httpx.RateLimitConfig{
		RequestsPerWindow: 1000000,
		Window:            time.Minute,
		Burst:             1000,
	}, httpx.IPKeyExtractor)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	for b.Loop() {
		limited.ServeHTTP(httptest.NewRecorder(), req)
	}
}
