package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"erp-suite/backend/internal/auth/service"
	"erp-suite/backend/internal/security"
	sessiondomain "erp-suite/backend/internal/session/domain"
	sessionrepo "erp-suite/backend/internal/session/repository"
	userdomain "erp-suite/backend/internal/user/domain"
)

type memUsers struct {
	mu      sync.Mutex
	byID    map[string]*userdomain.User
	byEmail map[string]*userdomain.User
}

func (r *memUsers) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byEmail[email], nil
}

func (r *memUsers) Create(ctx context.Context, u *userdomain.User, roleIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u
	return nil
}

type memSessions struct {
	mu sync.Mutex
	m  map[string]*sessiondomain.RefreshRecord
}

func (r *memSessions) Create(ctx context.Context, rec *sessiondomain.RefreshRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.m[rec.ID] = &cp
	return nil
}

func (r *memSessions) FindMatchingActive(ctx context.Context, userID, rawToken string) (*sessiondomain.RefreshRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for _, rec := range r.m {
		if rec.UserID == userID && rec.Active(now) && security.RefreshTokenHashEqual(rawToken, rec.TokenHash) {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memSessions) Rotate(ctx context.Context, oldID string, successor *sessiondomain.RefreshRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	old, ok := r.m[oldID]
	if !ok || !old.Active(now) {
		return sessionrepo.ErrNotActive
	}
	old.RevokedAt = &now
	cp := *successor
	r.m[successor.ID] = &cp
	return nil
}

func (r *memSessions) Revoke(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	rec, ok := r.m[id]
	if !ok || !rec.Active(now) {
		return false, nil
	}
	rec.RevokedAt = &now
	return true, nil
}

func newTestHandler(t *testing.T) (*AuthHandler, *service.AuthService) {
	t.Helper()
	codec, err := security.NewTokenCodec([]byte("a-secret"), []byte("r-secret"), "erp-test", 15*time.Minute, 168*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	users := &memUsers{byID: map[string]*userdomain.User{}, byEmail: map[string]*userdomain.User{}}
	sessions := &memSessions{m: map[string]*sessiondomain.RefreshRecord{}}
	svc := service.NewAuthService(users, sessions, security.NewHasher(4), codec, nil)
	return NewAuthHandler(svc, false), svc
}

func newTestServer(t *testing.T) (*httptest.Server, *service.AuthService) {
	t.Helper()
	h, svc := newTestHandler(t)
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		h.RegisterPublic(r)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, svc
}

func register(t *testing.T, srv *httptest.Server, email, password string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"name": "Test", "email": email, "password": password})
	resp, err := http.Post(srv.URL+"/api/v1/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
}

func login(t *testing.T, srv *httptest.Server, email, password string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := http.Post(srv.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return resp
}

func refreshCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == "refreshToken" {
			return c
		}
	}
	return nil
}

func TestLogin_SetsHttpOnlyCookie(t *testing.T) {
	srv, _ := newTestServer(t)
	register(t, srv, "a@example.com", "password1")

	resp := login(t, srv, "a@example.com", "password1")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	c := refreshCookie(t, resp)
	if c == nil {
		t.Fatal("expected refreshToken cookie")
	}
	if !c.HttpOnly {
		t.Error("refresh cookie must be HttpOnly")
	}
	if c.SameSite != http.SameSiteStrictMode {
		t.Error("refresh cookie must be SameSite=Strict")
	}
	if c.Path != "/api/v1/auth" {
		t.Errorf("refresh cookie path = %q", c.Path)
	}
	var tr struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tr.AccessToken == "" {
		t.Fatal("expected access token in body")
	}
}

func TestLogin_GenericUnauthorized(t *testing.T) {
	srv, _ := newTestServer(t)
	register(t, srv, "a@example.com", "password1")

	wrong := login(t, srv, "a@example.com", "nope")
	defer wrong.Body.Close()
	unknown := login(t, srv, "ghost@example.com", "nope")
	defer unknown.Body.Close()
	if wrong.StatusCode != http.StatusUnauthorized || unknown.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrong.StatusCode, unknown.StatusCode)
	}
	var a, b map[string]any
	_ = json.NewDecoder(wrong.Body).Decode(&a)
	_ = json.NewDecoder(unknown.Body).Decode(&b)
	if a["message"] != b["message"] {
		t.Fatal("wrong-password and unknown-email bodies must be identical")
	}
}

func TestRefresh_RotatesCookie(t *testing.T) {
	srv, _ := newTestServer(t)
	register(t, srv, "a@example.com", "password1")
	loginResp := login(t, srv, "a@example.com", "password1")
	loginResp.Body.Close()
	c0 := refreshCookie(t, loginResp)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/auth/refresh", nil)
	req.AddCookie(c0)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d", resp.StatusCode)
	}
	c1 := refreshCookie(t, resp)
	if c1 == nil || c1.Value == c0.Value {
		t.Fatal("refresh must rotate the cookie value")
	}

	// Replaying the old cookie fails and clears the cookie.
	req2, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/auth/refresh", nil)
	req2.AddCookie(c0)
	resp2, err := http.DefaultClient.Do(req2)
	if err != nil {
		t.Fatalf("refresh replay: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Fatalf("replayed refresh status = %d, want 401", resp2.StatusCode)
	}
	cleared := refreshCookie(t, resp2)
	if cleared == nil || cleared.MaxAge != -1 {
		t.Fatal("failed refresh must clear the cookie")
	}
}

func TestRefresh_MissingCookie(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/api/v1/auth/refresh", "application/json", nil)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh without cookie status = %d, want 401", resp.StatusCode)
	}
}

func TestLogout_IdempotentAndClearsCookie(t *testing.T) {
	srv, _ := newTestServer(t)
	register(t, srv, "a@example.com", "password1")
	loginResp := login(t, srv, "a@example.com", "password1")
	loginResp.Body.Close()
	c0 := refreshCookie(t, loginResp)

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/auth/logout", nil)
		req.AddCookie(c0)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("logout %d: %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("logout %d status = %d, want 204", i, resp.StatusCode)
		}
	}

	// The revoked cookie can no longer refresh.
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/auth/refresh", nil)
	req.AddCookie(c0)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("refresh after logout: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh after logout status = %d, want 401", resp.StatusCode)
	}
}

func TestRegister_Conflict(t *testing.T) {
	srv, _ := newTestServer(t)
	register(t, srv, "a@example.com", "password1")

	body, _ := json.Marshal(map[string]string{"name": "Dup", "email": "a@example.com", "password": "password2"})
	resp, err := http.Post(srv.URL+"/api/v1/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", resp.StatusCode)
	}
}
