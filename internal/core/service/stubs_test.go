package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/pkg/password"
)

const testSecret = "test-secret-0123456789-abcdefghijklmnop"

// ---------------------------------------------------------------------------
// Credential store stub
// ---------------------------------------------------------------------------

type stubStore struct {
	mu         sync.Mutex
	users      map[string]*domain.Identity // keyed by id
	hasher     *password.BcryptHasher
	policy     password.Policy
	seq        int
	createErr  error
	findErr    error
	addRoleErr error
	dummyCalls int
}

func newStubStore() *stubStore {
	return &stubStore{
		users:  make(map[string]*domain.Identity),
		hasher: password.NewBcryptHasher(bcrypt.MinCost),
		policy: password.DefaultPolicy(),
	}
}

func cloneIdentity(u *domain.Identity) *domain.Identity {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Roles = append([]string(nil), u.Roles...)
	return &clone
}

func (s *stubStore) FindByName(_ context.Context, username string) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, u := range s.users {
		if u.Username == username {
			return cloneIdentity(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubStore) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, u := range s.users {
		if u.Email == email {
			return cloneIdentity(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubStore) Create(_ context.Context, in domain.NewIdentity) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	if reasons := s.policy.Check(in.Password); len(reasons) > 0 {
		return nil, domain.NewReasonError(domain.ErrPasswordPolicy, reasons...)
	}
	for _, u := range s.users {
		if u.Username == in.Username {
			return nil, domain.ErrUserExists
		}
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	s.seq++
	u := &domain.Identity{
		ID:            "id-" + strconv.Itoa(s.seq),
		Username:      in.Username,
		Email:         in.Email,
		PasswordHash:  hash,
		SecurityStamp: in.SecurityStamp,
		Roles:         []string{},
		CreatedAt:     time.Now().UTC(),
	}
	s.users[u.ID] = u
	return cloneIdentity(u), nil
}

func (s *stubStore) VerifyPassword(_ context.Context, identity *domain.Identity, pw string) error {
	if identity == nil {
		s.mu.Lock()
		s.dummyCalls++
		s.mu.Unlock()
		s.hasher.VerifyDummy(pw)
		return domain.ErrInvalidCredentials
	}
	if s.hasher.Verify(pw, identity.PasswordHash) != nil {
		return domain.ErrInvalidCredentials
	}
	return nil
}

func (s *stubStore) ResetPassword(_ context.Context, id, expectedStamp, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reasons := s.policy.Check(newPassword); len(reasons) > 0 {
		return domain.NewReasonError(domain.ErrPasswordPolicy, reasons...)
	}
	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if u.SecurityStamp != expectedStamp {
		return domain.ErrStaleStamp
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.SecurityStamp = u.SecurityStamp + "-rotated"
	return nil
}

func (s *stubStore) RolesOf(_ context.Context, identity *domain.Identity) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[identity.ID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return append([]string{}, u.Roles...), nil
}

func (s *stubStore) AddToRole(_ context.Context, identity *domain.Identity, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addRoleErr != nil {
		return s.addRoleErr
	}
	u, ok := s.users[identity.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	for _, r := range u.Roles {
		if r == role {
			return nil
		}
	}
	u.Roles = append(u.Roles, role)
	return nil
}

// snapshot returns a copy of the stored identity for username.
func (s *stubStore) snapshot(username string) *domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return cloneIdentity(u)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Role registry stub
// ---------------------------------------------------------------------------

type stubRoles struct {
	mu        sync.Mutex
	names     map[string]bool
	existsErr error
	createErr error
	created   []string
}

func newStubRoles(names ...string) *stubRoles {
	r := &stubRoles{names: make(map[string]bool)}
	for _, n := range names {
		r.names[n] = true
	}
	return r
}

func (r *stubRoles) Exists(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.existsErr != nil {
		return false, r.existsErr
	}
	return r.names[name], nil
}

func (r *stubRoles) Create(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.names[name] = true
	r.created = append(r.created, name)
	return nil
}

func (r *stubRoles) List(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Reset ledger, link builder, notifier stubs
// ---------------------------------------------------------------------------

type stubLedger struct {
	mu       sync.Mutex
	consumed map[string]time.Duration
	checkErr error
}

func newStubLedger() *stubLedger {
	return &stubLedger{consumed: make(map[string]time.Duration)}
}

func (l *stubLedger) IsConsumed(_ context.Context, tokenID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.checkErr != nil {
		return false, l.checkErr
	}
	_, ok := l.consumed[tokenID]
	return ok, nil
}

func (l *stubLedger) MarkConsumed(_ context.Context, tokenID string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consumed[tokenID] = ttl
	return nil
}

type stubLinks struct{}

func (stubLinks) ResetLink(baseURL, email, encodedToken string) (string, error) {
	if baseURL == "" {
		return "", errors.New("base url required")
	}
	return baseURL + "/auth/reset-password?email=" + email + "&token=" + encodedToken, nil
}

type stubNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (n *stubNotifier) NotifyPasswordReset(_ context.Context, email, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, email+" "+link)
	return nil
}

// clock is a settable time source shared by services under test.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
