package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemStore is a map-backed Store for tests and single-node development.
// All methods are safe for concurrent use.
type MemStore struct {
	mu sync.RWMutex

	employees map[string]*Employee
	passwords map[string]string // employee id -> bcrypt hash
	roles     map[string][]Role // employee id -> roles, grants preloaded
	sessions  map[string]*Session
	tokens    map[string]string // token -> session id
	twofactor map[string]*TwoFactorCredential
	loginLog  []*LoginAttempt
	whitelist []WhitelistEntry
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		employees: make(map[string]*Employee),
		passwords: make(map[string]string),
		roles:     make(map[string][]Role),
		sessions:  make(map[string]*Session),
		tokens:    make(map[string]string),
		twofactor: make(map[string]*TwoFactorCredential),
	}
}

func (m *MemStore) Employees(ctx context.Context) EmployeeStore { return memEmployees{m} }
func (m *MemStore) Roles(ctx context.Context) RoleStore { return memRoles{m} }
func (m *MemStore) Sessions(ctx context.Context) SessionStore { return memSessions{m} }
func (m *MemStore) TwoFactor(ctx context.Context) TwoFactorStore { return memTwoFactor{m} }
func (m *MemStore) LoginLog(ctx context.Context) LoginLogStore { return memLoginLog{m} }
func (m *MemStore) Whitelist(ctx context.Context) WhitelistStore { return memWhitelist{m} }

// SeedEmployee installs an employee record and, when hash is non-empty,
// its password hash.
func (m *MemStore) SeedEmployee(e Employee, hash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := e
	m.employees[e.ID] = &cp
	if hash != "" {
		m.passwords[e.ID] = hash
	}
}

// SeedRoles installs the role set for an employee.
func (m *MemStore) SeedRoles(employeeID string, roles ...Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[employeeID] = append([]Role(nil), roles...)
}

// SeedTwoFactor installs a second-factor credential.
func (m *MemStore) SeedTwoFactor(cred TwoFactorCredential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := cred
	m.twofactor[cred.EmployeeID] = &cp
}

// SeedWhitelist installs trusted-origin patterns.
func (m *MemStore) SeedWhitelist(patterns ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range patterns {
		m.whitelist = append(m.whitelist, WhitelistEntry{Pattern: p})
	}
}

// Attempts returns a snapshot of the login log, oldest first.
func (m *MemStore) Attempts() []LoginAttempt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]LoginAttempt, 0, len(m.loginLog))
	for _, a := range m.loginLog {
		out = append(out, *a)
	}
	return out
}

// Credential returns the stored second-factor credential, if any.
func (m *MemStore) Credential(employeeID string) (TwoFactorCredential, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cred, ok := m.twofactor[employeeID]
	if !ok {
		return TwoFactorCredential{}, false
	}
	return *cred, true
}

type memEmployees struct{ m *MemStore }

func (s memEmployees) Find(ctx context.Context, id string) (*Employee, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	e, ok := s.m.employees[id]
	if !ok || e.DeletedAt != nil {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s memEmployees) FindByEmail(ctx context.Context, email string) (*Employee, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, e := range s.m.employees {
		if e.DeletedAt == nil && strings.EqualFold(e.Email, email) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s memEmployees) FindByAuthUserID(ctx context.Context, authUserID string) (*Employee, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, e := range s.m.employees {
		if e.DeletedAt == nil && e.AuthUserID != "" && e.AuthUserID == authUserID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s memEmployees) PasswordHash(ctx context.Context, employeeID string) (string, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	hash, ok := s.m.passwords[employeeID]
	if !ok {
		return "", ErrNotFound
	}
	return hash, nil
}

type memRoles struct{ m *MemStore }

func (s memRoles) ForEmployee(ctx context.Context, employeeID string) ([]Role, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	return append([]Role(nil), s.m.roles[employeeID]...), nil
}

type memSessions struct{ m *MemStore }

func (s memSessions) Create(ctx context.Context, sess *Session) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cp := *sess
	s.m.sessions[sess.ID] = &cp
	s.m.tokens[sess.Token] = sess.ID
	return nil
}

func (s memSessions) FindByToken(ctx context.Context, token string) (*Session, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	id, ok := s.m.tokens[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess, ok := s.m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s memSessions) ActiveByEmployee(ctx context.Context, employeeID string) ([]*Session, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var out []*Session
	for _, sess := range s.m.sessions {
		if sess.EmployeeID == employeeID && sess.Active {
			cp := *sess
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoginAt.Before(out[j].LoginAt) })
	return out, nil
}

func (s memSessions) Deactivate(ctx context.Context, sessionID string, at time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sess, ok := s.m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if sess.Active {
		sess.Active = false
		logout := at
		sess.LogoutAt = &logout
	}
	return nil
}

func (s memSessions) Touch(ctx context.Context, sessionID string, at time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sess, ok := s.m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	sess.LastSeenAt = at
	return nil
}

type memTwoFactor struct{ m *MemStore }

func (s memTwoFactor) Find(ctx context.Context, employeeID string) (*TwoFactorCredential, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	cred, ok := s.m.twofactor[employeeID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *cred
	return &cp, nil
}

func (s memTwoFactor) Upsert(ctx context.Context, cred *TwoFactorCredential) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cp := *cred
	s.m.twofactor[cred.EmployeeID] = &cp
	return nil
}

func (s memTwoFactor) ClearCode(ctx context.Context, employeeID string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cred, ok := s.m.twofactor[employeeID]
	if !ok {
		return nil
	}
	if cred.Method == MethodSMS || cred.Method == MethodEmail {
		cred.Secret = ""
	}
	return nil
}

type memLoginLog struct{ m *MemStore }

func (s memLoginLog) Append(ctx context.Context, attempt *LoginAttempt) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cp := *attempt
	s.m.loginLog = append(s.m.loginLog, &cp)
	return nil
}

type memWhitelist struct{ m *MemStore }

func (s memWhitelist) Entries(ctx context.Context) ([]WhitelistEntry, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	return append([]WhitelistEntry(nil), s.m.whitelist...), nil
}

func (s memWhitelist) Add(ctx context.Context, entry WhitelistEntry) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for i, existing := range s.m.whitelist {
		if existing.Pattern == entry.Pattern {
			s.m.whitelist[i] = entry
			return nil
		}
	}
	s.m.whitelist = append(s.m.whitelist, entry)
	return nil
}

func (s memWhitelist) Remove(ctx context.Context, pattern string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for i, existing := range s.m.whitelist {
		if existing.Pattern == pattern {
			s.m.whitelist = append(s.m.whitelist[:i], s.m.whitelist[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
