package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tasuki-ai/tasuki/internal/auth"
	"github.com/tasuki-ai/tasuki/internal/ctxutil"
	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/ratelimit"
	"github.com/tasuki-ai/tasuki/internal/testutil"
)

func TestRateLimitMiddleware(t *testing.T) {
	// MemoryLimiter with rate=1 token/sec and burst=2 allows the first 2 rapid
	// requests (initial burst capacity) then rejects until tokens refill.
	limiter := ratelimit.NewMemoryLimiter(1, 2)
	defer func() { _ = limiter.Close() }()

	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := ratelimit.Middleware(limiter, ratelimit.IPKeyFunc, nil)(inner)

	// Simulate 3 rapid requests from the same IP. First 2 consume the burst
	// tokens; the third is rejected with 429.
	for i := range 3 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/some-path", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		handler.ServeHTTP(rec, req)

		if i < 2 {
			if rec.Code != http.StatusOK {
				t.Errorf("request %d: got status %d, want %d (within burst)", i+1, rec.Code, http.StatusOK)
			}
		} else {
			if rec.Code != http.StatusTooManyRequests {
				t.Errorf("request %d: got status %d, want %d (burst exhausted)", i+1, rec.Code, http.StatusTooManyRequests)
			}
			if rec.Header().Get("Retry-After") == "" {
				t.Error("rate-limited response should include Retry-After header")
			}
		}
	}
}

func TestRateLimitMiddleware_DifferentIPs(t *testing.T) {
	// Each IP gets its own bucket, so requests from different IPs should
	// not interfere with each other.
	limiter := ratelimit.NewMemoryLimiter(1, 1)
	defer func() { _ = limiter.Close() }()

	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := ratelimit.Middleware(limiter, ratelimit.IPKeyFunc, nil)(inner)

	send := func(remoteAddr string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/path", nil)
		req.RemoteAddr = remoteAddr
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("10.0.0.1:1000"); code != http.StatusOK {
		t.Errorf("IP A first request: got %d, want %d", code, http.StatusOK)
	}
	if code := send("10.0.0.1:1000"); code != http.StatusTooManyRequests {
		t.Errorf("IP A second request: got %d, want %d", code, http.StatusTooManyRequests)
	}
	// Separate bucket for IP B.
	if code := send("10.0.0.2:1000"); code != http.StatusOK {
		t.Errorf("IP B first request: got %d, want %d", code, http.StatusOK)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var captured string
	inner := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		captured = RequestIDFromContext(r.Context())
	})
	handler := requestIDMiddleware(inner)

	// Client-supplied ID is preserved.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "client-id-123")
	handler.ServeHTTP(rec, req)
	if captured != "client-id-123" {
		t.Errorf("got request ID %q, want %q", captured, "client-id-123")
	}
	if got := rec.Header().Get("X-Request-ID"); got != "client-id-123" {
		t.Errorf("response header X-Request-ID = %q, want %q", got, "client-id-123")
	}

	// Absent ID is generated.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/", nil)
	handler.ServeHTTP(rec, req)
	if captured == "" {
		t.Error("expected a generated request ID, got empty")
	}
	if rec.Header().Get("X-Request-ID") != captured {
		t.Error("response header should echo the generated request ID")
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := securityHeadersMiddleware(inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	mgr, err := auth.NewJWTManager("", "", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	var gotUserID int64
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = ctxutil.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := authMiddleware(mgr, inner)

	t.Run("missing token rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/tasks", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("got %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("malformed token rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/v1/tasks", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("got %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("valid token passes claims", func(t *testing.T) {
		token, _, err := mgr.IssueToken(model.User{ID: 7, Email: "u@example.com"})
		if err != nil {
			t.Fatalf("IssueToken: %v", err)
		}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/v1/tasks", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("got %d, want %d", rec.Code, http.StatusOK)
		}
		if gotUserID != 7 {
			t.Errorf("user ID in context = %d, want 7", gotUserID)
		}
	})

	t.Run("public path skips auth", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("got %d, want %d", rec.Code, http.StatusOK)
		}
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("boom")
	})
	handler := recoveryMiddleware(testutil.TestLogger(), inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("got %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
