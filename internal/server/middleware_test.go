package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiter_PerIP(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	a := rl.GetLimiter("10.0.0.1")
	if a != rl.GetLimiter("10.0.0.1") {
		t.Error("Same IP should share a limiter")
	}
	if a == rl.GetLimiter("10.0.0.2") {
		t.Error("Different IPs should get separate limiters")
	}
}

func TestRateLimitMiddleware_Blocks(t *testing.T) {
	handler := NewWebhookRateLimitMiddleware(2, testLogger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/webhooks/stripe", nil)
		req.RemoteAddr = "192.0.2.1:4000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("Burst requests should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after burst, got %d", codes[2])
	}

	// same host on a different port shares the bucket
	req := httptest.NewRequest("POST", "/webhooks/stripe", nil)
	req.RemoteAddr = "192.0.2.1:5000"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 for same host, got %d", rr.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"192.0.2.9", "192.0.2.9"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = tt.remote
		if got := clientIP(req); got != tt.want {
			t.Errorf("clientIP(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}
