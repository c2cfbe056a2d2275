package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowUnderLimit(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 5; i++ {
		if !rl.Allow("bidder:1", 5, time.Minute) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
}

func TestAllowOverLimit(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		rl.Allow("bidder:1", 3, time.Minute)
	}
	if rl.Allow("bidder:1", 3, time.Minute) {
		t.Fatal("request over limit should be denied")
	}
}

func TestAllowSeparateKeys(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		rl.Allow("bidder:1", 3, time.Minute)
	}
	if !rl.Allow("bidder:2", 3, time.Minute) {
		t.Fatal("a different key should have its own window")
	}
}

func TestWindowReset(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		rl.Allow("bidder:1", 3, 10*time.Millisecond)
	}
	if rl.Allow("bidder:1", 3, 10*time.Millisecond) {
		t.Fatal("should be denied before window resets")
	}

	time.Sleep(20 * time.Millisecond)
	if !rl.Allow("bidder:1", 3, 10*time.Millisecond) {
		t.Fatal("should be allowed after window resets")
	}
}

func TestCleanup(t *testing.T) {
	rl := NewRateLimiter()

	rl.Allow("stale", 3, 10*time.Millisecond)
	rl.Allow("fresh", 3, time.Minute)

	time.Sleep(20 * time.Millisecond)
	rl.Cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.entries["stale"]; ok {
		t.Error("expired entry should be removed")
	}
	if _, ok := rl.entries["fresh"]; !ok {
		t.Error("live entry should survive cleanup")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter()
	handler := RateLimit(rl, func(r *http.Request) string { return "k" }, 2, time.Minute)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auctions/1/bids", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auctions/1/bids", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}
