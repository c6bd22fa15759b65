package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/sap-helpdesk/internal/auth"
	"github.com/lorrc/sap-helpdesk/internal/infrastructure/metrics"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

const testSecret = "middleware-secret"

func newVerifier(t *testing.T) *auth.Verifier {
	t.Helper()
	v, err := auth.NewVerifier(auth.VerifierConfig{HMACSecret: testSecret})
	require.NoError(t, err)
	return v
}

func token(t *testing.T, email string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Email: email,
		Name:  "Test User",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)

	for _, bad := range []string{"has space", "line\tbreak", strings.Repeat("x", maxRequestIDLen+1)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, bad)
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.NotEqual(t, bad, seen)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err, "replaced with a fresh UUID")
	}
}

func TestAuthenticate(t *testing.T) {
	v := newVerifier(t)

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Authenticate(v, discard)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		Authenticate(v, discard)(ok).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token stores claims and runs decorators", func(t *testing.T) {
		type fwdKey struct{}
		var claims *auth.Claims
		var forwarded string
		h := Authenticate(v, discard, func(ctx context.Context, tok string) context.Context {
			return context.WithValue(ctx, fwdKey{}, tok)
		})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ = GetClaims(r.Context())
			forwarded, _ = r.Context().Value(fwdKey{}).(string)
		}))

		tok := token(t, "Alice.Johnson@pwc.com")
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer "+tok)
		h.ServeHTTP(httptest.NewRecorder(), req)

		require.NotNil(t, claims)
		assert.Equal(t, "alice.johnson@pwc.com", claims.Identity())
		assert.Equal(t, tok, forwarded)
	})
}

type stubChecker struct {
	admins map[string]bool
	err    error
}

func (s stubChecker) IsAdmin(_ context.Context, email string) (bool, error) {
	return s.admins[email], s.err
}

func TestRequireAdmin(t *testing.T) {
	checker := stubChecker{admins: map[string]bool{"admin@pwc.com": true}}

	run := func(c AdminChecker, email string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if email != "" {
			req = req.WithContext(WithClaims(req.Context(), &auth.Claims{Email: email}))
		}
		rec := httptest.NewRecorder()
		RequireAdmin(c, discard)(ok).ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, run(checker, "admin@pwc.com").Code)
	assert.Equal(t, http.StatusForbidden, run(checker, "user@pwc.com").Code)
	assert.Equal(t, http.StatusUnauthorized, run(checker, "").Code)
	assert.Equal(t, http.StatusInternalServerError, run(stubChecker{err: errors.New("db down")}, "admin@pwc.com").Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstSize:         2,
		CleanupInterval:   time.Minute,
		TTL:               time.Minute,
	})
	t.Cleanup(rl.Stop)

	h := rl.Middleware(ok)
	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.1, 172.16.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	// A different client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimiter_IdentityKeyAndRetryAfter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 0.5,
		BurstSize:         1,
		Key:               IdentityKey,
	})
	t.Cleanup(rl.Stop)
	h := rl.Middleware(ok)

	call := func(email string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.1.1.1:4000"
		if email != "" {
			req = req.WithContext(WithClaims(req.Context(), &auth.Claims{Email: email}))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, call("alice@pwc.com").Code)
	limited := call("alice@pwc.com")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "2", limited.Header().Get("Retry-After"))

	// Same address, different caller.
	assert.Equal(t, http.StatusNoContent, call("bob@pwc.com").Code)
	// Anonymous requests share the address bucket.
	assert.Equal(t, http.StatusNoContent, call("").Code)
	assert.Equal(t, http.StatusTooManyRequests, call("").Code)
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 1,
		BurstSize:         1,
		TTL:               time.Minute,
		Now:               func() time.Time { return now },
	})
	t.Cleanup(rl.Stop)

	assert.True(t, rl.Allow("a"))
	now = now.Add(30 * time.Second)
	assert.True(t, rl.Allow("b"))

	now = now.Add(45 * time.Second)
	assert.Equal(t, 1, rl.sweep())
	assert.Equal(t, 0, rl.sweep())
	rl.Stop()
}

func TestRecoveryLogger(t *testing.T) {
	h := RequestID(RecoveryLogger(discard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	detail := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", detail.Code)
	assert.NotEmpty(t, detail.RequestID)
}

func TestRequestLogger_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	h := RequestLogger(discard, m)(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	metricsRec := httptest.NewRecorder()
	m.Handler().ServeHTTP(metricsRec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metricsRec.Body.String(), `helpdesk_http_requests_total{method="GET",route="unmatched",status="204"} 1`)
}
