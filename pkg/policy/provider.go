package policy

// ExecContext answers the two questions about the current session that the
// rules combine with configuration: is the engine running a
// security-restricted operation, and has effective privilege been elevated
// above the session user's own (e.g. inside a SECURITY DEFINER boundary).
// Implementations must be cheap; they run on every policy-checked statement.
type ExecContext interface {
	// SecurityRestricted reports whether the current operation runs inside
	// the engine's security-restricted sandbox (extension scripts, VACUUM,
	// materialized view refresh and similar).
	SecurityRestricted() bool

	// Elevated reports whether the effective user's privilege exceeds the
	// session user's own. Being a superuser is not by itself elevation; the
	// session must have crossed a privilege-bearing call boundary.
	Elevated() bool
}

// RoleResolver resolves a role name to whether it is itself in the protected
// set: an existing superuser, or a member of a superuser-equivalent role.
type RoleResolver interface {
	IsReserved(name string) (bool, error)
}

// StaticContext implements ExecContext with fixed answers, for hosts that
// compute context up front and for tests.
type StaticContext struct {
	InSecurityRestricted bool
	IsElevated           bool
}

// SecurityRestricted implements ExecContext
func (c StaticContext) SecurityRestricted() bool { return c.InSecurityRestricted }

// Elevated implements ExecContext
func (c StaticContext) Elevated() bool { return c.IsElevated }

// StaticResolver implements RoleResolver over a fixed set of role names
type StaticResolver map[string]bool

// IsReserved implements RoleResolver
func (r StaticResolver) IsReserved(name string) (bool, error) {
	return r[name], nil
}
