package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mintSSOToken(t *testing.T, secret, issuer, subject string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestLoginWithSSOToken(t *testing.T) {
	f := newLoginFixture(t, WithSSOSecret("sso-shared-secret", "idp.clinic.example"))
	ctx := context.Background()

	f.store.SeedEmployee(Employee{
		ID: "emp-3", AuthUserID: "idp-user-77",
		Email: "doctor@clinic.example", Status: EmployeeStatusActive,
	}, "")

	token := mintSSOToken(t, "sso-shared-secret", "idp.clinic.example", "idp-user-77", time.Now().Add(time.Minute))
	res, err := f.svc.Login(ctx, LoginRequest{SSOToken: token, IP: "10.0.0.5"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Session == nil || res.Employee.ID != "emp-3" {
		t.Fatalf("sso login did not resolve employee: %+v", res)
	}

	attempts := f.store.Attempts()
	if len(attempts) != 1 || attempts[0].LoginType != LoginTypeSSO || !attempts[0].Success {
		t.Fatalf("bad log row: %+v", attempts)
	}
}

func TestLoginSSOTokenRejected(t *testing.T) {
	f := newLoginFixture(t, WithSSOSecret("sso-shared-secret", "idp.clinic.example"))
	ctx := context.Background()

	cases := []struct {
		name  string
		token string
	}{
		{"wrong secret", mintSSOToken(t, "other-secret", "idp.clinic.example", "idp-user-77", time.Now().Add(time.Minute))},
		{"wrong issuer", mintSSOToken(t, "sso-shared-secret", "evil.example", "idp-user-77", time.Now().Add(time.Minute))},
		{"expired", mintSSOToken(t, "sso-shared-secret", "idp.clinic.example", "idp-user-77", time.Now().Add(-time.Minute))},
		{"empty subject", mintSSOToken(t, "sso-shared-secret", "idp.clinic.example", "", time.Now().Add(time.Minute))},
		{"garbage", "not.a.token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Login(ctx, LoginRequest{SSOToken: tc.token, IP: "10.0.0.5"})
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestLoginSSODisabledWithoutSecret(t *testing.T) {
	f := newLoginFixture(t)
	ctx := context.Background()

	token := mintSSOToken(t, "sso-shared-secret", "", "idp-user-77", time.Now().Add(time.Minute))
	_, err := f.svc.Login(ctx, LoginRequest{SSOToken: token, IP: "10.0.0.5"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginSSOUnknownSubject(t *testing.T) {
	f := newLoginFixture(t, WithSSOSecret("sso-shared-secret", ""))
	ctx := context.Background()

	token := mintSSOToken(t, "sso-shared-secret", "", "nobody", time.Now().Add(time.Minute))
	_, err := f.svc.Login(ctx, LoginRequest{SSOToken: token, IP: "10.0.0.5"})
	if !errors.Is(err, ErrEmployeeInactive) {
		t.Fatalf("expected ErrEmployeeInactive, got %v", err)
	}
}
