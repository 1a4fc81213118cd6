package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/pkg/config"
	"github.com/99minutos/auth-service/internal/pkg/password"
)

// memoryStore is an in-memory credential store and role registry.
type memoryStore struct {
	mu     sync.Mutex
	users  map[string]*domain.Identity
	roles  map[string]bool
	hasher *password.BcryptHasher
	policy password.Policy
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:  make(map[string]*domain.Identity),
		roles:  make(map[string]bool),
		hasher: password.NewBcryptHasher(bcrypt.MinCost),
		policy: password.DefaultPolicy(),
	}
}

func (s *memoryStore) find(match func(*domain.Identity) bool) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			clone := *u
			clone.Roles = append([]string{}, u.Roles...)
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *memoryStore) FindByName(_ context.Context, username string) (*domain.Identity, error) {
	return s.find(func(u *domain.Identity) bool { return strings.EqualFold(u.Username, username) })
}

func (s *memoryStore) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	return s.find(func(u *domain.Identity) bool { return strings.EqualFold(u.Email, email) })
}

func (s *memoryStore) Create(_ context.Context, in domain.NewIdentity) (*domain.Identity, error) {
	if reasons := s.policy.Check(in.Password); len(reasons) > 0 {
		return nil, domain.NewReasonError(domain.ErrPasswordPolicy, reasons...)
	}
	hash, _ := s.hasher.Hash(in.Password)
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &domain.Identity{ID: in.Username, Username: in.Username, Email: in.Email, PasswordHash: hash, SecurityStamp: in.SecurityStamp, Roles: []string{}}
	s.users[u.ID] = u
	clone := *u
	return &clone, nil
}

func (s *memoryStore) VerifyPassword(_ context.Context, identity *domain.Identity, pw string) error {
	if identity == nil {
		s.hasher.VerifyDummy(pw)
		return domain.ErrInvalidCredentials
	}
	if s.hasher.Verify(pw, identity.PasswordHash) != nil {
		return domain.ErrInvalidCredentials
	}
	return nil
}

func (s *memoryStore) ResetPassword(_ context.Context, id, expectedStamp, newPassword string) error {
	if reasons := s.policy.Check(newPassword); len(reasons) > 0 {
		return domain.NewReasonError(domain.ErrPasswordPolicy, reasons...)
	}
	hash, _ := s.hasher.Hash(newPassword)
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	if u == nil || u.SecurityStamp != expectedStamp {
		return domain.ErrStaleStamp
	}
	u.PasswordHash = hash
	u.SecurityStamp += "+"
	return nil
}

func (s *memoryStore) RolesOf(_ context.Context, identity *domain.Identity) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.users[identity.ID].Roles...), nil
}

func (s *memoryStore) AddToRole(_ context.Context, identity *domain.Identity, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.roles[role] {
		return domain.ErrRoleNotFound
	}
	s.users[identity.ID].Roles = append(s.users[identity.ID].Roles, role)
	return nil
}

func (s *memoryStore) Exists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roles[name], nil
}

func (s *memoryStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []string{}
	for n := range s.roles {
		out = append(out, n)
	}
	return out, nil
}

// roleRegistry exposes the role half of memoryStore under the RoleRegistry
// method set, whose Create differs from the credential store's.
type roleRegistry struct{ *memoryStore }

func (r roleRegistry) Create(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[name] = true
	return nil
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	store := newMemoryStore()
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:   "router-test-secret-0123456789abcdef",
			Issuer:   "auth-service",
			Audience: "auth-service-clients",
			TTL:      30 * time.Minute,
		},
		Reset: config.ResetConfig{
			TTL:            time.Hour,
			PublicBaseURL:  "https://auth.example.com",
			LinkInResponse: true,
		},
	}
	e, err := NewRouter(Dependencies{
		Config: cfg,
		Store:  store,
		Roles:  roleRegistry{store},
		Log:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewRouter returned error: %v", err)
	}
	return e
}

func call(t *testing.T, h http.Handler, method, path, body, bearer string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec, resp
}

func TestRouter_RegisterLoginAndRoles(t *testing.T) {
	srv := newTestServer(t)

	rec, resp := call(t, srv, http.MethodPost, "/auth/register", `{"username":"alice","email":"a@x.io","password":"P@ssw0rd!","role":"admin"}`, "")
	if rec.Code != http.StatusOK || resp["status"] != "Success" {
		t.Fatalf("register: %d %v", rec.Code, resp)
	}

	rec, resp = call(t, srv, http.MethodPost, "/auth/login", `{"username":"alice","password":"P@ssw0rd!"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatalf("expected a token, got %v", resp)
	}

	rec, resp = call(t, srv, http.MethodGet, "/auth/me", "", token)
	if rec.Code != http.StatusOK || resp["username"] != "alice" {
		t.Fatalf("me: %d %v", rec.Code, resp)
	}

	rec, _ = call(t, srv, http.MethodGet, "/auth/roles", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("roles as admin: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_LoginFailures(t *testing.T) {
	srv := newTestServer(t)
	call(t, srv, http.MethodPost, "/auth/register", `{"username":"alice","email":"a@x.io","password":"P@ssw0rd!"}`, "")

	wrong, _ := call(t, srv, http.MethodPost, "/auth/login", `{"username":"alice","password":"nope"}`, "")
	unknown, _ := call(t, srv, http.MethodPost, "/auth/login", `{"username":"mallory","password":"nope"}`, "")

	for _, rec := range []*httptest.ResponseRecorder{wrong, unknown} {
		if rec.Code != http.StatusUnauthorized || rec.Body.Len() != 0 {
			t.Fatalf("expected bare 401, got %d %q", rec.Code, rec.Body.String())
		}
	}
}

func TestRouter_Register_Duplicate(t *testing.T) {
	srv := newTestServer(t)
	body := `{"username":"alice","email":"a@x.io","password":"P@ssw0rd!"}`
	call(t, srv, http.MethodPost, "/auth/register", body, "")

	rec, resp := call(t, srv, http.MethodPost, "/auth/register", body, "")
	if rec.Code != http.StatusInternalServerError || resp["message"] != "User already exists" {
		t.Fatalf("expected 500 User already exists, got %d %v", rec.Code, resp)
	}
}

func TestRouter_PasswordResetFlow(t *testing.T) {
	srv := newTestServer(t)
	call(t, srv, http.MethodPost, "/auth/register", `{"username":"alice","email":"a@x.io","password":"P@ssw0rd!","role":"user"}`, "")

	rec, resp := call(t, srv, http.MethodPost, "/auth/forgot-password", `{"email":"a@x.io"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot: %d %s", rec.Code, rec.Body.String())
	}
	link, err := url.Parse(resp["resetLink"].(string))
	if err != nil {
		t.Fatalf("reset link does not parse: %v", err)
	}
	if link.Path != "/auth/reset-password" {
		t.Fatalf("unexpected link path %s", link.Path)
	}

	// The client posts the token exactly as it appears in the link.
	encoded := strings.SplitN(link.RawQuery, "token=", 2)[1]
	body, _ := json.Marshal(map[string]string{"email": "a@x.io", "token": encoded, "newPassword": "N3w!pass"})

	rec, resp = call(t, srv, http.MethodPost, "/auth/reset-password", string(body), "")
	if rec.Code != http.StatusOK || resp["message"] != "Password has been reset successfully" {
		t.Fatalf("reset: %d %v", rec.Code, resp)
	}

	rec, resp = call(t, srv, http.MethodPost, "/auth/reset-password", string(body), "")
	if rec.Code != http.StatusBadRequest || resp["message"] != "Password reset failed" {
		t.Fatalf("reuse: %d %v", rec.Code, resp)
	}

	rec, _ = call(t, srv, http.MethodPost, "/auth/login", `{"username":"alice","password":"N3w!pass"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login with new password: %d", rec.Code)
	}
}

func TestRouter_ForgotPassword_UnknownEmail(t *testing.T) {
	srv := newTestServer(t)

	rec, resp := call(t, srv, http.MethodPost, "/auth/forgot-password", `{"email":"nobody@x.io"}`, "")
	if rec.Code != http.StatusBadRequest || resp["message"] != "Invalid Email Address" {
		t.Fatalf("expected 400 Invalid Email Address, got %d %v", rec.Code, resp)
	}
}

func TestRouter_ProtectedRoutes(t *testing.T) {
	srv := newTestServer(t)
	call(t, srv, http.MethodPost, "/auth/register", `{"username":"bob","email":"b@x.io","password":"P@ssw0rd!","role":"user"}`, "")
	_, resp := call(t, srv, http.MethodPost, "/auth/login", `{"username":"bob","password":"P@ssw0rd!"}`, "")
	token, _ := resp["token"].(string)

	rec, resp := call(t, srv, http.MethodGet, "/auth/me", "", "")
	if rec.Code != http.StatusUnauthorized || resp["error"] != "missing authorization header" {
		t.Fatalf("expected 401 without token, got %d %v", rec.Code, resp)
	}

	rec, _ = call(t, srv, http.MethodGet, "/auth/me", "", "garbage")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}

	rec, _ = call(t, srv, http.MethodGet, "/auth/roles", "", token)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}
}

func TestRouter_Operability(t *testing.T) {
	srv := newTestServer(t)

	if rec, _ := call(t, srv, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	if rec, _ := call(t, srv, http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("ready: %d", rec.Code)
	}

	call(t, srv, http.MethodPost, "/auth/login", `{"username":"x","password":"y"}`, "")
	rec, _ := call(t, srv, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "auth_logins_total") {
		t.Fatalf("metrics: %d", rec.Code)
	}
}

func TestNewRouter_RequiresConfig(t *testing.T) {
	if _, err := NewRouter(Dependencies{Log: zerolog.Nop()}); err == nil {
		t.Fatalf("expected error without config")
	}
}

func TestRouter_RegisterLoginScenario(t *testing.T) {
	srv := newTestServer(t)

	rec, resp := call(t, srv, http.MethodPost, "/auth/register", `{"username":"alice","email":"a@x.com","password":"P@ss1","role":"user"}`, "")
	if rec.Code != http.StatusOK || resp["status"] != "Success" {
		t.Fatalf("register: %d %v", rec.Code, resp)
	}

	rec, resp = call(t, srv, http.MethodPost, "/auth/login", `{"username":"alice","password":"P@ss1"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	roles, _ := resp["roles"].([]any)
	if len(roles) != 1 || roles[0] != domain.RoleUser {
		t.Fatalf("expected roles [User], got %v", resp["roles"])
	}

	rec, _ = call(t, srv, http.MethodPost, "/auth/login", `{"username":"alice","password":"wrong"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
	}
}

func TestRouter_ForgotResetScenario(t *testing.T) {
	srv := newTestServer(t)
	call(t, srv, http.MethodPost, "/auth/register", `{"username":"alice","email":"a@x.com","password":"P@ss1","role":"user"}`, "")

	rec, resp := call(t, srv, http.MethodPost, "/auth/forgot-password", `{"email":"a@x.com"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot: %d %s", rec.Code, rec.Body.String())
	}
	link, err := url.Parse(resp["resetLink"].(string))
	if err != nil {
		t.Fatalf("reset link does not parse: %v", err)
	}
	encoded := strings.SplitN(link.RawQuery, "token=", 2)[1]

	first, _ := json.Marshal(map[string]string{"email": "a@x.com", "token": encoded, "newPassword": "NewP@ss1"})
	rec, resp = call(t, srv, http.MethodPost, "/auth/reset-password", string(first), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: %d %v", rec.Code, resp)
	}

	second, _ := json.Marshal(map[string]string{"email": "a@x.com", "token": encoded, "newPassword": "Another1"})
	rec, resp = call(t, srv, http.MethodPost, "/auth/reset-password", string(second), "")
	if rec.Code != http.StatusBadRequest || resp["message"] != "Password reset failed" {
		t.Fatalf("reuse: %d %v", rec.Code, resp)
	}

	rec, _ = call(t, srv, http.MethodPost, "/auth/login", `{"username":"alice","password":"NewP@ss1"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login with new password: %d", rec.Code)
	}
}

func TestRouter_OverlongPasswordIsRejected(t *testing.T) {
	srv := newTestServer(t)
	long := "NewP@ss1" + strings.Repeat("x", 81)

	body, _ := json.Marshal(map[string]string{"username": "bob", "email": "b@x.com", "password": long})
	rec, resp := call(t, srv, http.MethodPost, "/auth/register", string(body), "")
	if rec.Code != http.StatusInternalServerError || resp["message"] != "User creation failed" {
		t.Fatalf("register: %d %v", rec.Code, resp)
	}
	if errs, _ := resp["errors"].([]any); len(errs) != 1 || errs[0] != "Passwords must be at most 72 bytes." {
		t.Fatalf("expected the byte limit reason, got %v", resp["errors"])
	}

	call(t, srv, http.MethodPost, "/auth/register", `{"username":"alice","email":"a@x.com","password":"P@ss1"}`, "")
	_, resp = call(t, srv, http.MethodPost, "/auth/forgot-password", `{"email":"a@x.com"}`, "")
	link, err := url.Parse(resp["resetLink"].(string))
	if err != nil {
		t.Fatalf("reset link does not parse: %v", err)
	}
	encoded := strings.SplitN(link.RawQuery, "token=", 2)[1]

	body, _ = json.Marshal(map[string]string{"email": "a@x.com", "token": encoded, "newPassword": long})
	rec, resp = call(t, srv, http.MethodPost, "/auth/reset-password", string(body), "")
	if rec.Code != http.StatusBadRequest || resp["message"] != "Password reset failed" {
		t.Fatalf("expected 400 for an over-long password, got %d %v", rec.Code, resp)
	}
}
