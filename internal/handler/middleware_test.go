package handler

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_CleanupDropsIdleCallers(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, CleanupInterval: time.Hour})
	defer rl.Stop()

	rl.limiter("idle")
	rl.limiter("busy")

	rl.mu.Lock()
	rl.limiters["idle"].lastAccess = time.Now().Add(-3 * time.Hour)
	rl.mu.Unlock()

	rl.cleanup(time.Now())

	assert.Equal(t, 1, rl.Len())
	rl.mu.Lock()
	_, ok := rl.limiters["busy"]
	rl.mu.Unlock()
	assert.True(t, ok)
}

func TestRateLimiter_RetryAfter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfigPerMinute(1))
	defer rl.Stop()

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5000"

	first := httptest.NewRecorder()
	h.ServeHTTP(first, req)
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
}

func TestIdentity_NormalizesRole(t *testing.T) {
	var gotUser, gotRole string
	h := Identity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserID(r.Context())
		gotRole = userRole(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "  librarian-7 ")
	req.Header.Set(HeaderUserRole, "Admin")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "librarian-7", gotUser)
	assert.Equal(t, RoleAdmin, gotRole)
}

func TestRequireUser(t *testing.T) {
	h := Identity(RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	anonymous := httptest.NewRecorder()
	h.ServeHTTP(anonymous, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, anonymous.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "student-1")
	known := httptest.NewRecorder()
	h.ServeHTTP(known, req)
	assert.Equal(t, http.StatusNoContent, known.Code)
}

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	h := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, logs.String(), "panic recovered")
}

func TestLogging_RecordsStatus(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		io.WriteString(w, "short and stout")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/brew", nil))

	assert.Contains(t, logs.String(), `"status":418`)
	assert.Contains(t, logs.String(), `"path":"/brew"`)
}
