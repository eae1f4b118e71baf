package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestJWTAuth_Middleware(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	userID := uuid.New()

	valid, err := auth.GenerateAccessToken(userID, "host@example.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	expired, _ := auth.GenerateAccessToken(userID, "host@example.com", -time.Minute)
	foreign, _ := NewJWTAuth("other-secret").GenerateAccessToken(userID, "host@example.com", time.Hour)

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantErr  string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized, "UNAUTHORIZED"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen uuid.UUID
			h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetUserID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tc.wantCode {
				t.Fatalf("expected status %d, got %d", tc.wantCode, rr.Code)
			}
			if tc.wantErr == "" {
				if seen != userID {
					t.Errorf("expected user %s in context, got %s", userID, seen)
				}
				return
			}

			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != tc.wantErr {
				t.Errorf("expected code %q, got %q", tc.wantErr, body.Error.Code)
			}
		})
	}
}

func TestRateLimiter_PerUser(t *testing.T) {
	rl := &RateLimiter{visitors: make(map[string]*visitor), limit: 2, window: time.Minute, now: time.Now}
	h := rl.Middleware(okHandler())

	alice, bob := uuid.New(), uuid.New()
	send := func(userID uuid.UUID) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/youtube", nil)
		req = req.WithContext(context.WithValue(req.Context(), UserIDKey, userID))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := send(alice); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, code)
		}
	}
	if code := send(alice); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after the limit, got %d", code)
	}
	if code := send(bob); code != http.StatusOK {
		t.Errorf("another user should not be limited, got %d", code)
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	now := time.Now()
	rl := &RateLimiter{visitors: make(map[string]*visitor), limit: 1, window: time.Minute, now: func() time.Time { return now }}

	if !rl.allow("k") {
		t.Fatal("first hit should pass")
	}
	if rl.allow("k") {
		t.Fatal("second hit inside the window should be limited")
	}
	now = now.Add(2 * time.Minute)
	if !rl.allow("k") {
		t.Error("hit after the window should pass")
	}
}

func TestRateLimiter_SteadyTrafficNotLockedOut(t *testing.T) {
	start := time.Now()
	now := start
	rl := &RateLimiter{visitors: make(map[string]*visitor), limit: 2, window: time.Minute, now: func() time.Time { return now }}

	want := []bool{true, true, true, true, true, true}
	for i, expected := range want {
		now = start.Add(time.Duration(i) * 50 * time.Second)
		if got := rl.allow("user:steady"); got != expected {
			t.Errorf("hit %d at +%s: allow = %v, want %v", i+1, now.Sub(start), got, expected)
		}
	}
}

func TestRateLimiter_DeniedHitsDoNotExtendWindow(t *testing.T) {
	start := time.Now()
	now := start
	rl := &RateLimiter{visitors: make(map[string]*visitor), limit: 1, window: time.Minute, now: func() time.Time { return now }}

	rl.allow("k")
	for _, offset := range []time.Duration{10 * time.Second, 30 * time.Second, 59 * time.Second} {
		now = start.Add(offset)
		if rl.allow("k") {
			t.Fatalf("hit at +%s should be limited", offset)
		}
	}
	now = start.Add(time.Minute)
	if !rl.allow("k") {
		t.Error("a new window should open one minute after the first hit")
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-ID")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if seen == "" || rr.Header().Get("X-Request-ID") != seen {
		t.Errorf("expected a generated id echoed back, got %q / %q", seen, rr.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "from-proxy")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if seen != "from-proxy" {
		t.Errorf("incoming id should be kept, got %q", seen)
	}
}

func TestCORS(t *testing.T) {
	h := CORS("http://localhost:3000/")(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/uploads", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("expected origin allowed, got %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/uploads", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("foreign origin must not be allowed")
	}
}
