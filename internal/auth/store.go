package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Employees(ctx context.Context) EmployeeStore
	Roles(ctx context.Context) RoleStore
	Sessions(ctx context.Context) SessionStore
	TwoFactor(ctx context.Context) TwoFactorStore
	LoginLog(ctx context.Context) LoginLogStore
	Whitelist(ctx context.Context) WhitelistStore
}

// EmployeeStore resolves employee records. Finders never return
// soft-deleted rows.
type EmployeeStore interface {
	Find(ctx context.Context, id string) (*Employee, error)
	FindByEmail(ctx context.Context, email string) (*Employee, error)
	FindByAuthUserID(ctx context.Context, authUserID string) (*Employee, error)
	PasswordHash(ctx context.Context, employeeID string) (string, error)
}

// RoleStore resolves the roles an employee holds, grants preloaded.
type RoleStore interface {
	ForEmployee(ctx context.Context, employeeID string) ([]Role, error)
}

// SessionStore manages session rows.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	FindByToken(ctx context.Context, token string) (*Session, error)
	// ActiveByEmployee returns active sessions ordered by login time
	// ascending, oldest first.
	ActiveByEmployee(ctx context.Context, employeeID string) ([]*Session, error)
	Deactivate(ctx context.Context, sessionID string, at time.Time) error
	Touch(ctx context.Context, sessionID string, at time.Time) error
}

// TwoFactorStore manages the single second-factor credential per employee.
type TwoFactorStore interface {
	Find(ctx context.Context, employeeID string) (*TwoFactorCredential, error)
	// Upsert is a single atomic insert-on-conflict-update; issuing a new
	// code must invalidate the previous one without a read-then-write gap.
	Upsert(ctx context.Context, cred *TwoFactorCredential) error
	// ClearCode wipes transient sms/email secret material after a
	// successful verification. No-op for otp credentials.
	ClearCode(ctx context.Context, employeeID string) error
}

// LoginLogStore appends immutable login attempts.
type LoginLogStore interface {
	Append(ctx context.Context, attempt *LoginAttempt) error
}

// WhitelistStore manages trusted-origin patterns.
type WhitelistStore interface {
	Entries(ctx context.Context) ([]WhitelistEntry, error)
	Add(ctx context.Context, entry WhitelistEntry) error
	Remove(ctx context.Context, pattern string) error
}
