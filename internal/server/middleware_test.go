package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"erp-suite/backend/internal/security"
	"erp-suite/backend/internal/server/httpx"
)

type stubValidator struct {
	claims *security.AccessClaims
	err    error
}

func (v *stubValidator) Validate(token string) (*security.AccessClaims, error) {
	return v.claims, v.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	h := authMiddleware(&stubValidator{})(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	h := authMiddleware(&stubValidator{err: errors.New("expired")})(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthMiddleware_SetsClaims(t *testing.T) {
	want := &security.AccessClaims{UserID: "u1", Roles: []string{"financeiro"}}
	var got *security.AccessClaims
	h := authMiddleware(&stubValidator{claims: want})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = httpx.GetClaims(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got == nil || got.UserID != "u1" {
		t.Fatalf("claims in context = %+v, want UserID u1", got)
	}
}

func TestRequireMaster(t *testing.T) {
	tests := []struct {
		name   string
		claims *security.AccessClaims
		want   int
	}{
		{"no claims", nil, http.StatusUnauthorized},
		{"non-master", &security.AccessClaims{UserID: "u1"}, http.StatusForbidden},
		{"master", &security.AccessClaims{UserID: "u1", IsMaster: true}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.claims != nil {
				req = req.WithContext(httpx.WithClaims(req.Context(), tt.claims))
			}
			rec := httptest.NewRecorder()
			requireMaster(okHandler()).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	tests := []struct {
		name   string
		claims *security.AccessClaims
		want   int
	}{
		{"holder", &security.AccessClaims{UserID: "u1", Roles: []string{"gestao"}}, http.StatusOK},
		{"master bypass", &security.AccessClaims{UserID: "u1", IsMaster: true}, http.StatusOK},
		{"outsider", &security.AccessClaims{UserID: "u1", Roles: []string{"producao"}}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(httpx.WithClaims(req.Context(), tt.claims))
			rec := httptest.NewRecorder()
			requireRoles("financeiro", "gestao")(okHandler()).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	h := rateLimitMiddleware(60, 2)(okHandler())
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("burst-exceeding request status = %d, want 429", rec.Code)
	}

	// A different client IP has its own bucket.
	other := httptest.NewRequest(http.MethodPost, "/", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Fatalf("other-IP request status = %d, want 200", rec.Code)
	}
}

func TestTelemetryMiddleware_PassesThrough(t *testing.T) {
	h := telemetryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Context() == nil {
			t.Error("request context must be set")
		}
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", rec.Code)
	}
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"BEARER abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		if got := extractBearer(req); got != tt.want {
			t.Errorf("extractBearer(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestClientIP_ForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:9999"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("clientIP = %q", got)
	}
	req.Header.Del("X-Forwarded-For")
	if got := clientIP(req); got != "127.0.0.1" {
		t.Fatalf("clientIP = %q", got)
	}
}
