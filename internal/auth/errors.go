package auth

import "errors"

var (
	// ErrInvalidCredentials covers every primary-credential failure.
	// Deliberately generic: callers must not learn which field was wrong.
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	// ErrEmployeeInactive is returned when the authenticated principal has
	// no active employee record.
	ErrEmployeeInactive = errors.New("auth: no active employee record")
	// ErrTwoFactorInvalid covers wrong, expired and missing one-time codes.
	ErrTwoFactorInvalid = errors.New("auth: invalid two-factor code")
	// ErrOTPNotConfigured is returned when the otp method is requested but
	// no shared secret was ever provisioned.
	ErrOTPNotConfigured = errors.New("auth: otp not configured")
	// ErrSessionCreationFailed wraps session-store write failures, which
	// are fatal to the login.
	ErrSessionCreationFailed = errors.New("auth: session creation failed")
	// ErrSessionNotFound is returned for unknown, inactive or expired
	// session tokens.
	ErrSessionNotFound = errors.New("auth: session not found")
	// ErrUnauthorized is the generic authorization denial.
	ErrUnauthorized = errors.New("auth: unauthorized")
	// ErrNotFound is the storage-level missing-row sentinel.
	ErrNotFound = errors.New("auth: not found")
	// ErrInvalidInput flags rejected caller input on admin operations.
	ErrInvalidInput = errors.New("auth: invalid input")
)
