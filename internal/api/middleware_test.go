// internal/api/middleware_test.go
package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		if !rl.Allow("client-a", 3, time.Minute) {
			t.Fatalf("request %d should be allowed within the limit", i+1)
		}
	}
	if rl.Allow("client-a", 3, time.Minute) {
		t.Error("fourth request should be rejected")
	}

	// A different key has its own window.
	if !rl.Allow("client-b", 3, time.Minute) {
		t.Error("a fresh key should be allowed")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	rl := NewRateLimiter()

	if !rl.Allow("client", 1, 10*time.Millisecond) {
		t.Fatal("first request should be allowed")
	}
	if rl.Allow("client", 1, 10*time.Millisecond) {
		t.Fatal("second request in the same window should be rejected")
	}

	time.Sleep(20 * time.Millisecond)
	if !rl.Allow("client", 1, 10*time.Millisecond) {
		t.Error("request after window expiry should be allowed")
	}
}

func TestRateLimiterHeaders(t *testing.T) {
	rl := NewRateLimiter()

	limit, remaining, _ := rl.GetRateLimitHeaders("unseen", 5, time.Minute)
	if limit != 5 || remaining != 5 {
		t.Errorf("unseen key should report a full window, got limit=%d remaining=%d", limit, remaining)
	}

	rl.Allow("seen", 5, time.Minute)
	_, remaining, reset := rl.GetRateLimitHeaders("seen", 5, time.Minute)
	if remaining != 4 {
		t.Errorf("remaining = %d, want 4", remaining)
	}
	if reset <= time.Now().Unix() {
		t.Error("reset timestamp should be in the future")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("a request without an ID should be stamped with one")
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "given-id")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "given-id" {
		t.Errorf("supplied request ID should be echoed, got %q", got)
	}
}
