package auth

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"clinidesk.app/internal/ids"
	"clinidesk.app/internal/notify"
	"clinidesk.app/internal/obs"
)

// Service composes the IP classifier, challenge engine and session
// manager into the login state machine, and answers authentication
// questions for the rest of the API.
type Service struct {
	store    Store
	verifier CredentialVerifier
	sender   notify.Sender
	now      func() time.Time

	sessionTTL  time.Duration
	idleTimeout time.Duration
	maxSessions int
	codeTTL     time.Duration

	ssoSecret []byte
	ssoIssuer string

	// testCode, when non-empty, verifies any challenge. Inert by default;
	// cmd/api refuses to set it in production.
	testCode string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithSender wires the SMS/email delivery collaborator.
func WithSender(sender notify.Sender) ServiceOption {
	return func(s *Service) error {
		if sender != nil {
			s.sender = sender
		}
		return nil
	}
}

// WithCredentialVerifier replaces the default store-backed verifier.
func WithCredentialVerifier(v CredentialVerifier) ServiceOption {
	return func(s *Service) error {
		if v != nil {
			s.verifier = v
		}
		return nil
	}
}

// WithSessionTTL overrides the absolute session lifetime.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
		return nil
	}
}

// WithIdleTimeout overrides the inactivity timeout.
func WithIdleTimeout(d time.Duration) ServiceOption {
	return func(s *Service) error {
		if d > 0 {
			s.idleTimeout = d
		}
		return nil
	}
}

// WithMaxSessions overrides the per-employee concurrency cap.
func WithMaxSessions(n int) ServiceOption {
	return func(s *Service) error {
		if n > 0 {
			s.maxSessions = n
		}
		return nil
	}
}

// WithCodeTTL overrides the sms/email code validity window.
func WithCodeTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.codeTTL = ttl
		}
		return nil
	}
}

// WithSSOSecret enables the sso login type using the identity provider's
// shared HS256 secret.
func WithSSOSecret(secret, issuer string) ServiceOption {
	return func(s *Service) error {
		secret = strings.TrimSpace(secret)
		if secret != "" {
			s.ssoSecret = []byte(secret)
			s.ssoIssuer = strings.TrimSpace(issuer)
		}
		return nil
	}
}

// WithTestCode enables the universal bypass code. Never set this in a
// production deployment.
func WithTestCode(code string) ServiceOption {
	return func(s *Service) error {
		s.testCode = strings.TrimSpace(code)
		return nil
	}
}

// NewService constructs the auth service with optional configuration.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	svc := &Service{
		store:       store,
		sender:      notify.LogSender{},
		now:         time.Now,
		sessionTTL:  defaultSessionTTL,
		idleTimeout: defaultIdleTimeout,
		maxSessions: defaultMaxSessions,
		codeTTL:     defaultCodeTTL,
	}
	svc.verifier = NewLocalVerifier(store)
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// LoginRequest carries everything one attempt needs. Ambient request
// state (source IP, user-agent, submitted code) is threaded explicitly.
type LoginRequest struct {
	Email     string
	Password  string
	OTPCode   string
	Method    TwoFactorMethod
	SSOToken  string
	IP        string
	UserAgent string
}

// LoginResult is the terminal state of one attempt. When
// RequiresTwoFactor is set no session was issued and the caller must
// resubmit with a code.
type LoginResult struct {
	RequiresTwoFactor bool
	Method            TwoFactorMethod
	Employee          *Employee
	Roles             []Role
	Session           *Session
}

// Login runs the end-to-end state machine: credentials, employee record,
// origin classification, conditional second factor, session issuance.
// Every failing branch appends a login log row before returning; the log
// write itself is best-effort and never alters the decision.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	attempt := &LoginAttempt{
		Email:     strings.TrimSpace(strings.ToLower(req.Email)),
		IP:        req.IP,
		UserAgent: req.UserAgent,
		Device:    ParseUserAgent(req.UserAgent),
		LoginType: LoginTypePassword,
	}
	if req.SSOToken != "" {
		attempt.LoginType = LoginTypeSSO
	}

	fail := func(reason string, err error) (LoginResult, error) {
		attempt.Success = false
		attempt.FailureReason = reason
		s.logAttempt(ctx, attempt)
		obs.ObserveLogin("failure", attempt.LoginType)
		return LoginResult{}, err
	}

	employee, err := s.resolveEmployee(ctx, req, attempt)
	if err != nil {
		if errors.Is(err, ErrEmployeeInactive) {
			return fail("no_employee_record", err)
		}
		return fail("invalid_credentials", err)
	}
	attempt.EmployeeID = employee.ID
	if !employee.CanLogin() {
		return fail("employee_inactive", ErrEmployeeInactive)
	}

	cls := s.classifyOrigin(ctx, req.IP)
	attempt.Internal = cls.Internal

	if cls.RequiresTwoFactor {
		attempt.TwoFactorRequired = true

		if req.OTPCode == "" {
			method := s.challengeMethod(ctx, employee, req.Method)
			if _, err := s.IssueChallenge(ctx, employee, method); err != nil {
				if errors.Is(err, ErrOTPNotConfigured) {
					return fail("otp_not_configured", ErrOTPNotConfigured)
				}
				return fail("challenge_error", err)
			}
			// Challenge issued: not a terminal outcome, nothing to log yet.
			return LoginResult{RequiresTwoFactor: true, Method: method}, nil
		}

		ok, err := s.VerifyChallenge(ctx, employee.ID, req.OTPCode)
		if err != nil {
			return fail("twofactor_error", err)
		}
		if !ok {
			return fail("invalid_two_factor_code", ErrTwoFactorInvalid)
		}
		if attempt.LoginType == LoginTypePassword {
			attempt.LoginType = LoginTypeOTP
		}
	}

	session, err := s.CreateSession(ctx, employee.ID, req.IP, req.UserAgent, cls.Internal)
	if err != nil {
		_, _ = fail("session_error", nil)
		return LoginResult{}, ErrSessionCreationFailed
	}

	attempt.Success = true
	s.logAttempt(ctx, attempt)
	obs.ObserveLogin("success", attempt.LoginType)

	roles, err := s.store.Roles(ctx).ForEmployee(ctx, employee.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("resolve roles: %w", err)
	}
	return LoginResult{Employee: employee, Roles: roles, Session: session}, nil
}

func (s *Service) resolveEmployee(ctx context.Context, req LoginRequest, attempt *LoginAttempt) (*Employee, error) {
	employees := s.store.Employees(ctx)

	if req.SSOToken != "" {
		subject, err := s.verifySSOToken(req.SSOToken)
		if err != nil {
			return nil, ErrInvalidCredentials
		}
		employee, err := employees.FindByAuthUserID(ctx, subject)
		if err != nil {
			return nil, ErrEmployeeInactive
		}
		if attempt.Email == "" {
			attempt.Email = employee.Email
		}
		return employee, nil
	}

	if _, err := s.verifier.VerifyPassword(ctx, req.Email, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	employee, err := employees.FindByEmail(ctx, attempt.Email)
	if err != nil {
		return nil, ErrEmployeeInactive
	}
	return employee, nil
}

// classifyOrigin loads the whitelist and classifies. A whitelist read
// failure fails closed: the origin is treated as external.
func (s *Service) classifyOrigin(ctx context.Context, ip string) Classification {
	entries, err := s.store.Whitelist(ctx).Entries(ctx)
	if err != nil {
		obs.LogEvent("whitelist.load_failed", map[string]any{"error": err.Error()})
		return Classification{Internal: false, RequiresTwoFactor: true}
	}
	patterns := make([]string, 0, len(entries))
	for _, e := range entries {
		patterns = append(patterns, e.Pattern)
	}
	return Classify(ip, patterns)
}

// challengeMethod picks the method for a new challenge: explicit request
// first, then whatever credential is already provisioned, then sms.
func (s *Service) challengeMethod(ctx context.Context, employee *Employee, requested TwoFactorMethod) TwoFactorMethod {
	switch requested {
	case MethodOTP, MethodSMS, MethodEmail:
		return requested
	}
	if cred, err := s.store.TwoFactor(ctx).Find(ctx, employee.ID); err == nil && cred != nil && cred.Enabled {
		return cred.Method
	}
	return MethodSMS
}

// logAttempt appends to the login log, best-effort. A write failure is
// reported on the diagnostic channel and otherwise swallowed.
func (s *Service) logAttempt(ctx context.Context, attempt *LoginAttempt) {
	entry := *attempt
	entry.ID = ids.New()
	entry.AttemptedAt = s.now().UTC()
	if err := s.store.LoginLog(ctx).Append(ctx, &entry); err != nil {
		obs.LogEvent("login_log.append_failed", map[string]any{
			"employee_id": entry.EmployeeID,
			"error":       err.Error(),
		})
	}
}

// Authenticate resolves the principal for a session token, applying the
// lazy validity checks and touching the activity timestamp.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, ErrSessionNotFound
	}
	sessions := s.store.Sessions(ctx)
	sess, err := sessions.FindByToken(ctx, token)
	if err != nil {
		return Principal{}, ErrSessionNotFound
	}
	now := s.now().UTC()
	if !s.SessionValid(sess, now) {
		if sess.Active {
			// Lazy expiry: first access past the deadline retires the row.
			_ = sessions.Deactivate(ctx, sess.ID, now)
		}
		return Principal{}, ErrSessionNotFound
	}
	if err := sessions.Touch(ctx, sess.ID, now); err == nil {
		sess.LastSeenAt = now
	}

	employee, err := s.store.Employees(ctx).Find(ctx, sess.EmployeeID)
	if err != nil || !employee.CanLogin() {
		return Principal{}, ErrUnauthorized
	}
	roles, err := s.store.Roles(ctx).ForEmployee(ctx, employee.ID)
	if err != nil {
		return Principal{}, fmt.Errorf("resolve roles: %w", err)
	}
	return NewPrincipal(employee, roles, sess), nil
}

// Logout invalidates the session behind a token. Unknown tokens are a
// no-op: logout is idempotent.
func (s *Service) Logout(ctx context.Context, token string) error {
	sess, err := s.store.Sessions(ctx).FindByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil
	}
	return s.InvalidateSession(ctx, sess)
}

// ListWhitelist returns the configured trusted-origin patterns.
func (s *Service) ListWhitelist(ctx context.Context) ([]WhitelistEntry, error) {
	return s.store.Whitelist(ctx).Entries(ctx)
}

// AddWhitelistEntry validates and stores a pattern.
func (s *Service) AddWhitelistEntry(ctx context.Context, pattern, description string) (WhitelistEntry, error) {
	pattern = strings.TrimSpace(pattern)
	if !ValidWhitelistPattern(pattern) {
		return WhitelistEntry{}, fmt.Errorf("%w: unsupported whitelist pattern %q", ErrInvalidInput, pattern)
	}
	entry := WhitelistEntry{
		Pattern:     pattern,
		Description: strings.TrimSpace(description),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.Whitelist(ctx).Add(ctx, entry); err != nil {
		return WhitelistEntry{}, err
	}
	return entry, nil
}

// RemoveWhitelistEntry deletes a pattern.
func (s *Service) RemoveWhitelistEntry(ctx context.Context, pattern string) error {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return fmt.Errorf("%w: pattern is required", ErrInvalidInput)
	}
	return s.store.Whitelist(ctx).Remove(ctx, pattern)
}

// ValidWhitelistPattern accepts exact IPs, CIDR ranges and per-octet
// IPv4 wildcards.
func ValidWhitelistPattern(pattern string) bool {
	if pattern == "" {
		return false
	}
	if strings.Contains(pattern, "/") {
		_, err := netip.ParsePrefix(pattern)
		return err == nil
	}
	if strings.Contains(pattern, "*") {
		parts := strings.Split(pattern, ".")
		if len(parts) != 4 {
			return false
		}
		for _, p := range parts {
			if p == "*" {
				continue
			}
			n, err := strconv.Atoi(p)
			if err != nil || n < 0 || n > 255 {
				return false
			}
		}
		return true
	}
	_, err := netip.ParseAddr(pattern)
	return err == nil
}
