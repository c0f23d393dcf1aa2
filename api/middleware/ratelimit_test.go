package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeLimiter struct {
	count int64
	limit int64
	err   error
}

func (f *fakeLimiter) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.count++
	return f.count <= f.limit, f.count, nil
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	limiter := &fakeLimiter{limit: 2}
	handler := RateLimit(nil, limiter, "receipts", 2, time.Minute)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/comms/receipts", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/comms/receipts", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 past the limit, got %d", w.Code)
	}
}

func TestRateLimitFailsOpenOnLimiterError(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("redis down")}
	handler := RateLimit(nil, limiter, "receipts", 1, time.Minute)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/comms/receipts", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected fail-open 200, got %d", w.Code)
	}
}

func TestRateLimitNilLimiterDisablesCheck(t *testing.T) {
	handler := RateLimit(nil, nil, "receipts", 1, time.Minute)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/comms/receipts", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}
}
