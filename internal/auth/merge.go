package auth

// EffectivePermissions indexes merged permissions by code.
type EffectivePermissions map[string]EffectivePermission

// Merge combines the grants of every role into one effective permission
// table: capability flags OR together, scope takes the widest value any
// role grants. Both operations are commutative and idempotent, so role
// order and duplicate inclusion cannot change the result. Linear in the
// total number of (role, grant) pairs.
func Merge(roles []Role) EffectivePermissions {
	merged := make(EffectivePermissions)
	for _, role := range roles {
		for _, grant := range role.Grants {
			existing, ok := merged[grant.PermissionCode]
			if !ok {
				merged[grant.PermissionCode] = EffectivePermission{
					Code:         grant.PermissionCode,
					Capabilities: grant.Capabilities,
					Scope:        grant.Scope,
				}
				continue
			}
			existing.Capabilities = existing.Capabilities.Union(grant.Capabilities)
			existing.Scope = WiderScope(existing.Scope, grant.Scope)
			merged[grant.PermissionCode] = existing
		}
	}
	return merged
}

// List returns the merged entries. Order is unspecified; callers must
// not depend on it.
func (e EffectivePermissions) List() []EffectivePermission {
	out := make([]EffectivePermission, 0, len(e))
	for _, p := range e {
		out = append(out, p)
	}
	return out
}
