package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password with a stored hash.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return errors.New("password hash is empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// CredentialVerifier checks primary credentials against the identity
// provider and returns the provider-side user id on success. Deployments
// with a hosted auth provider plug their client in here.
type CredentialVerifier interface {
	VerifyPassword(ctx context.Context, email, password string) (string, error)
}

// LocalVerifier verifies credentials against password hashes held in the
// employee store. Default when no external provider is wired.
type LocalVerifier struct {
	store Store
}

// dummyHash is compared against on the branches that would otherwise
// return before any bcrypt work, so response timing does not reveal
// whether an email has an account. Same cost as HashPassword output.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// NewLocalVerifier builds a store-backed verifier.
func NewLocalVerifier(store Store) LocalVerifier {
	return LocalVerifier{store: store}
}

// VerifyPassword resolves the employee by email and compares hashes.
// Every failure collapses to ErrInvalidCredentials so callers cannot
// distinguish unknown emails from wrong passwords.
func (v LocalVerifier) VerifyPassword(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}
	employees := v.store.Employees(ctx)
	employee, err := employees.FindByEmail(ctx, email)
	if err != nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return "", ErrInvalidCredentials
	}
	hash, err := employees.PasswordHash(ctx, employee.ID)
	if err != nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return "", ErrInvalidCredentials
	}
	if err := VerifyPassword(hash, password); err != nil {
		return "", ErrInvalidCredentials
	}
	if employee.AuthUserID != "" {
		return employee.AuthUserID, nil
	}
	return employee.ID, nil
}
