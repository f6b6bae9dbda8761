package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	h := CORS("http://app.local")(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req.Header.Set("Origin", "http://app.local")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "http://app.local" {
		t.Fatalf("missing CORS header: %v", rec.Header())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req.Header.Set("Origin", "http://evil.local")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unexpected CORS header for foreign origin")
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS("*")(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://any.local")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://any.local" {
		t.Fatal("wildcard should echo origin")
	}
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	h := rl.Middleware(okHandler)

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if send("10.0.0.1:1000") != http.StatusOK || send("10.0.0.1:1001") != http.StatusOK {
		t.Fatal("burst requests should pass")
	}
	if code := send("10.0.0.1:1002"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	if send("10.0.0.2:1000") != http.StatusOK {
		t.Fatal("other clients must have their own bucket")
	}
}
