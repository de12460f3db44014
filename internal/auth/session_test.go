package auth

import (
	"context"
	"testing"
	"time"
)

func TestNewSessionTokenUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		token, err := NewSessionToken()
		if err != nil {
			t.Fatalf("NewSessionToken: %v", err)
		}
		if len(token) < 40 {
			t.Fatalf("token too short: %d chars", len(token))
		}
		if seen[token] {
			t.Fatalf("duplicate token after %d draws", i)
		}
		seen[token] = true
	}
}

func TestCreateSessionEvictsOldest(t *testing.T) {
	store := NewMemStore()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, err := NewService(store, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	var first *Session
	for i := 0; i < 3; i++ {
		sess, err := svc.CreateSession(ctx, "emp-1", "203.0.113.9", "ua", false)
		if err != nil {
			t.Fatalf("CreateSession %d: %v", i, err)
		}
		if i == 0 {
			first = sess
		}
		now = now.Add(time.Minute)
	}

	active, err := store.Sessions(ctx).ActiveByEmployee(ctx, "emp-1")
	if err != nil {
		t.Fatalf("ActiveByEmployee: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("expected 3 active sessions, got %d", len(active))
	}

	// Fourth login must evict exactly the oldest.
	if _, err := svc.CreateSession(ctx, "emp-1", "203.0.113.9", "ua", false); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	active, err = store.Sessions(ctx).ActiveByEmployee(ctx, "emp-1")
	if err != nil {
		t.Fatalf("ActiveByEmployee: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("expected cap of 3 after eviction, got %d", len(active))
	}
	for _, sess := range active {
		if sess.ID == first.ID {
			t.Fatalf("oldest session %s survived eviction", first.ID)
		}
	}
}

func TestSessionValid(t *testing.T) {
	svc, err := NewService(NewMemStore())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	login := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sess := &Session{
		Active:     true,
		LoginAt:    login,
		ExpiresAt:  login.Add(8 * time.Hour),
		LastSeenAt: login,
	}

	cases := []struct {
		name string
		at   time.Time
		tune func(*Session)
		want bool
	}{
		{name: "fresh", at: login.Add(time.Minute), want: true},
		{name: "just under idle timeout", at: login.Add(30*time.Minute - time.Second), want: true},
		{name: "idle timeout passed", at: login.Add(31 * time.Minute), want: false},
		{name: "absolute expiry passed", at: login.Add(9 * time.Hour),
			tune: func(s *Session) { s.LastSeenAt = login.Add(9 * time.Hour).Add(-time.Minute) }, want: false},
		{name: "inactive", at: login.Add(time.Minute),
			tune: func(s *Session) { s.Active = false }, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := *sess
			if tc.tune != nil {
				tc.tune(&s)
			}
			if got := svc.SessionValid(&s, tc.at); got != tc.want {
				t.Fatalf("SessionValid=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestInvalidateSessionIdempotent(t *testing.T) {
	store := NewMemStore()
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, "emp-1", "203.0.113.9", "ua", false)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := svc.InvalidateSession(ctx, sess); err != nil {
		t.Fatalf("InvalidateSession: %v", err)
	}
	if sess.Active || sess.LogoutAt == nil {
		t.Fatalf("session not marked logged out: %+v", sess)
	}
	// Second invalidation is a no-op.
	if err := svc.InvalidateSession(ctx, sess); err != nil {
		t.Fatalf("repeat InvalidateSession: %v", err)
	}
}
