package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clinidesk.app/internal/obs"
)

const (
	defaultSessionTTL  = 8 * time.Hour
	defaultIdleTimeout = 30 * time.Minute
	defaultMaxSessions = 3

	sessionTokenBytes = 32
)

// NewSessionToken returns an opaque bearer token with 256 bits of
// entropy from the system CSPRNG.
func NewSessionToken() (string, error) {
	raw := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// CreateSession enforces the concurrency cap, then persists and returns
// a fresh session. The cap is best-effort under concurrent logins for
// the same employee; stores wanting a hard limit must serialize per
// employee id.
func (s *Service) CreateSession(ctx context.Context, employeeID, ip, userAgent string, internal bool) (*Session, error) {
	sessions := s.store.Sessions(ctx)
	now := s.now().UTC()

	active, err := sessions.ActiveByEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	// Oldest-first eviction until the new session fits under the cap.
	for i := 0; len(active)-i >= s.maxSessions && i < len(active); i++ {
		if err := sessions.Deactivate(ctx, active[i].ID, now); err != nil {
			return nil, fmt.Errorf("evict session: %w", err)
		}
		obs.ObserveSessionEviction()
	}

	token, err := NewSessionToken()
	if err != nil {
		return nil, err
	}
	sess := &Session{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		Token:      token,
		IP:         ip,
		UserAgent:  userAgent,
		Device:     ParseUserAgent(userAgent),
		Internal:   internal,
		Active:     true,
		LoginAt:    now,
		ExpiresAt:  now.Add(s.sessionTTL),
		LastSeenAt: now,
	}
	if err := sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	return sess, nil
}

// SessionValid evaluates validity lazily against the absolute expiry and
// the inactivity timeout. There is no background sweep: an expired
// session stays active in storage until the next evaluation.
func (s *Service) SessionValid(sess *Session, now time.Time) bool {
	if sess == nil || !sess.Active {
		return false
	}
	if now.After(sess.ExpiresAt) {
		return false
	}
	if now.After(sess.LastSeenAt.Add(s.idleTimeout)) {
		return false
	}
	return true
}

// InvalidateSession deactivates a session and stamps the logout time.
// Idempotent: invalidating a dead session is a no-op.
func (s *Service) InvalidateSession(ctx context.Context, sess *Session) error {
	if sess == nil || !sess.Active {
		return nil
	}
	now := s.now().UTC()
	if err := s.store.Sessions(ctx).Deactivate(ctx, sess.ID, now); err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	sess.Active = false
	sess.LogoutAt = &now
	return nil
}
