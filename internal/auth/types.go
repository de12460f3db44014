package auth

import "time"

// Employee statuses. Resigned employees are soft-deleted and keep their
// rows so the login log stays resolvable.
const (
	EmployeeStatusActive   = "active"
	EmployeeStatusResigned = "resigned"
)

// Login types recorded in the login log.
const (
	LoginTypePassword = "password"
	LoginTypeOTP      = "otp"
	LoginTypeSSO      = "sso"
)

// Employee is a person authorized to use the dashboard.
type Employee struct {
	ID           string     `json:"id"`
	AuthUserID   string     `json:"auth_user_id,omitempty"`
	Number       string     `json:"employee_no"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	DepartmentID string     `json:"department_id,omitempty"`
	Status       string     `json:"status"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CanLogin reports whether the employee record admits authentication.
func (e *Employee) CanLogin() bool {
	return e != nil && e.Status == EmployeeStatusActive && e.DeletedAt == nil
}

// Scope is the data visibility breadth attached to a granted permission.
// The ordering own < department < all is load-bearing: merging takes the
// widest scope granted by any role.
type Scope int

const (
	ScopeOwn Scope = iota
	ScopeDepartment
	ScopeAll
)

func (s Scope) String() string {
	switch s {
	case ScopeDepartment:
		return "department"
	case ScopeAll:
		return "all"
	default:
		return "own"
	}
}

// ParseScope maps a stored scope label to its ordinal. Unknown labels
// collapse to the narrowest scope.
func ParseScope(label string) Scope {
	switch label {
	case "department":
		return ScopeDepartment
	case "all":
		return ScopeAll
	default:
		return ScopeOwn
	}
}

// WiderScope returns the broader of two scopes.
func WiderScope(a, b Scope) Scope {
	if b > a {
		return b
	}
	return a
}

// Action names one of the six capability flags a grant can carry.
type Action string

const (
	ActionCreate   Action = "create"
	ActionRead     Action = "read"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionExport   Action = "export"
	ActionBulkEdit Action = "bulk_edit"
)

// Capabilities holds the six independent flags of a grant.
type Capabilities struct {
	Create   bool `json:"can_create"`
	Read     bool `json:"can_read"`
	Update   bool `json:"can_update"`
	Delete   bool `json:"can_delete"`
	Export   bool `json:"can_export"`
	BulkEdit bool `json:"can_bulk_edit"`
}

// Allows reports the flag matching the action. Unknown actions are denied.
func (c Capabilities) Allows(a Action) bool {
	switch a {
	case ActionCreate:
		return c.Create
	case ActionRead:
		return c.Read
	case ActionUpdate:
		return c.Update
	case ActionDelete:
		return c.Delete
	case ActionExport:
		return c.Export
	case ActionBulkEdit:
		return c.BulkEdit
	default:
		return false
	}
}

// Union ORs another capability set into this one.
func (c Capabilities) Union(o Capabilities) Capabilities {
	return Capabilities{
		Create:   c.Create || o.Create,
		Read:     c.Read || o.Read,
		Update:   c.Update || o.Update,
		Delete:   c.Delete || o.Delete,
		Export:   c.Export || o.Export,
		BulkEdit: c.BulkEdit || o.BulkEdit,
	}
}

// Grant is one role-permission association. Scope lives here, not on the
// permission catalog entry: two roles may grant the same code at
// different breadths.
type Grant struct {
	PermissionCode string       `json:"permission_code"`
	Category       string       `json:"category,omitempty"`
	Capabilities   Capabilities `json:"capabilities"`
	Scope          Scope        `json:"scope"`
}

// Role is a named permission bundle with a seniority level.
type Role struct {
	ID      string  `json:"id"`
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	Level   int     `json:"level"`
	Primary bool    `json:"is_primary"`
	Grants  []Grant `json:"-"`
}

// EffectivePermission is the merged view of one permission code across
// every role an employee holds. Computed, never stored.
type EffectivePermission struct {
	Code         string       `json:"code"`
	Capabilities Capabilities `json:"capabilities"`
	Scope        Scope        `json:"scope"`
}

// TwoFactorMethod selects the challenge family.
type TwoFactorMethod string

const (
	MethodOTP   TwoFactorMethod = "otp"
	MethodSMS   TwoFactorMethod = "sms"
	MethodEmail TwoFactorMethod = "email"
)

// TwoFactorCredential is the single second-factor record an employee may
// hold. For MethodOTP the secret is a long-lived base32 shared secret;
// for MethodSMS/MethodEmail it encodes "code:expiryUnix" and is
// overwritten on every issuance.
type TwoFactorCredential struct {
	EmployeeID string
	Method     TwoFactorMethod
	Secret     string
	Enabled    bool
	UpdatedAt  time.Time
}

// DeviceInfo is parsed from the raw user-agent string.
type DeviceInfo struct {
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	DeviceType string `json:"device_type"`
}

// Session is one authenticated browser/device instance.
type Session struct {
	ID         string     `json:"id"`
	EmployeeID string     `json:"employee_id"`
	Token      string     `json:"-"`
	IP         string     `json:"ip"`
	UserAgent  string     `json:"user_agent"`
	Device     DeviceInfo `json:"device"`
	Internal   bool       `json:"internal"`
	Active     bool       `json:"active"`
	LoginAt    time.Time  `json:"login_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	LastSeenAt time.Time  `json:"last_seen_at"`
	LogoutAt   *time.Time `json:"logout_at,omitempty"`
}

// LoginAttempt is one append-only login log row. Never updated or deleted.
type LoginAttempt struct {
	ID                string
	EmployeeID        string
	Email             string
	IP                string
	UserAgent         string
	Device            DeviceInfo
	Success           bool
	FailureReason     string
	Internal          bool
	TwoFactorRequired bool
	LoginType         string
	AttemptedAt       time.Time
}

// WhitelistEntry is one trusted-origin pattern: exact IP, per-octet
// wildcard, or CIDR.
type WhitelistEntry struct {
	Pattern     string    `json:"pattern"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
