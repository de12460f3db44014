package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ssoClaims are the identity-provider token claims we care about: the
// subject maps to employees.auth_user_id.
type ssoClaims struct {
	jwt.RegisteredClaims
}

// verifySSOToken validates an HS256 token minted by the external
// identity provider and returns its subject. Any defect — bad
// signature, wrong algorithm, expiry, unexpected issuer — collapses to
// ErrInvalidCredentials.
func (s *Service) verifySSOToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" || len(s.ssoSecret) == 0 {
		return "", ErrInvalidCredentials
	}

	parsed, err := jwt.ParseWithClaims(token, &ssoClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidCredentials
		}
		return s.ssoSecret, nil
	})
	if err != nil {
		return "", ErrInvalidCredentials
	}
	claims, ok := parsed.Claims.(*ssoClaims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidCredentials
	}
	if s.ssoIssuer != "" && claims.Issuer != s.ssoIssuer {
		return "", ErrInvalidCredentials
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", ErrInvalidCredentials
	}
	return subject, nil
}
