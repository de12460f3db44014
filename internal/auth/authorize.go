package auth

// Principal is an authenticated employee with resolved roles, merged
// permissions and the session that authenticated the request.
type Principal struct {
	Employee    *Employee
	Roles       []Role
	Permissions EffectivePermissions
	Session     *Session
}

// NewPrincipal resolves the merged permission table for the given roles.
func NewPrincipal(employee *Employee, roles []Role, session *Session) Principal {
	return Principal{
		Employee:    employee,
		Roles:       roles,
		Permissions: Merge(roles),
		Session:     session,
	}
}

// Allows reports whether the merged permissions grant the action for the
// permission code. Absent codes deny.
func (e EffectivePermissions) Allows(code string, action Action) bool {
	perm, ok := e[code]
	if !ok {
		return false
	}
	return perm.Capabilities.Allows(action)
}

// ScopeFilter describes the data-visibility constraint a domain query
// must apply. The gate derives it; applying it is the caller's job.
type ScopeFilter struct {
	Scope        Scope  `json:"scope"`
	DepartmentID string `json:"department_id,omitempty"`
	EmployeeID   string `json:"employee_id,omitempty"`
}

// ScopeFilterFor derives the visibility filter for a permission code.
// Codes the employee was never granted collapse to the narrowest scope.
func (e EffectivePermissions) ScopeFilterFor(code string, employee *Employee) ScopeFilter {
	scope := ScopeOwn
	if perm, ok := e[code]; ok {
		scope = perm.Scope
	}
	switch scope {
	case ScopeAll:
		return ScopeFilter{Scope: ScopeAll}
	case ScopeDepartment:
		return ScopeFilter{Scope: ScopeDepartment, DepartmentID: employee.DepartmentID}
	default:
		return ScopeFilter{Scope: ScopeOwn, EmployeeID: employee.ID}
	}
}

// Allows is the principal-level permission check.
func (p Principal) Allows(code string, action Action) bool {
	return p.Permissions.Allows(code, action)
}

// ScopeFilterFor derives the principal's visibility filter for a code.
func (p Principal) ScopeFilterFor(code string) ScopeFilter {
	return p.Permissions.ScopeFilterFor(code, p.Employee)
}

// HasRole reports membership of a role code.
func (p Principal) HasRole(code string) bool {
	for _, r := range p.Roles {
		if r.Code == code {
			return true
		}
	}
	return false
}

// HasRoleLevel reports whether any held role meets the seniority
// threshold.
func (p Principal) HasRoleLevel(minLevel int) bool {
	for _, r := range p.Roles {
		if r.Level >= minLevel {
			return true
		}
	}
	return false
}
