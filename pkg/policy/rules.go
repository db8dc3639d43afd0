package policy

import (
	"fmt"
	"strings"

	"github.com/dbsentinel/pggatekeeper/pkg/stmt"
)

// deniedExtensions closes known sandbox-escape vectors unconditionally. The
// list is a policy constant, not configuration: file_fdw hands out arbitrary
// filesystem reads regardless of who installs it.
var deniedExtensions = map[string]bool{
	"file_fdw": true,
}

// roleChangeDenied is the shared role-modification-permitted check. Superuser
// related modifications are never permitted in strict mode, and never from an
// elevated context.
func (a *Agent) roleChangeDenied(rule, object string, ctx ExecContext) *Denial {
	if a.store.StrictMode() {
		return &Denial{Rule: rule, Object: object,
			Reason: "superuser role modification not allowed in strict mode"}
	}
	if ctx.Elevated() {
		return &Denial{Rule: rule, Object: object,
			Reason: "superuser role modification not allowed"}
	}
	return nil
}

// isReserved wraps the resolver lookup. A resolver failure reads as reserved,
// which fails toward denial rather than toward an unchecked grant.
func (a *Agent) isReserved(name string) bool {
	reserved, err := a.resolver.IsReserved(name)
	if err != nil {
		a.log.WithField("role", name).WithError(err).Warn("role lookup failed, treating as reserved")
		return true
	}
	return reserved
}

func (a *Agent) checkCopy(ev stmt.Copy, ctx ExecContext) *Denial {
	// Program-sourced copy is never permitted, in any configuration or
	// context.
	if ev.IsProgram {
		return &Denial{Rule: "copy", Reason: "COPY TO/FROM PROGRAM not allowed"}
	}
	// Stream copy stays inside the session; nothing to restrict.
	if !ev.HasFileTarget() {
		return nil
	}
	if a.store.StrictMode() {
		return &Denial{Rule: "copy", Object: ev.Filename,
			Reason: "COPY TO/FROM FILE not allowed in strict mode"}
	}
	if ctx.SecurityRestricted() {
		return &Denial{Rule: "copy", Object: ev.Filename,
			Reason: "COPY TO/FROM FILE not allowed in SECURITY_RESTRICTED_OPERATION"}
	}
	if ctx.Elevated() {
		return &Denial{Rule: "copy", Object: ev.Filename,
			Reason: "COPY TO/FROM FILE not allowed"}
	}
	return nil
}

// checkRoleOptions applies the option checks shared by role creation and
// alteration: any statement carrying options must name a role on the reserved
// allowlist, granting the superuser attribute requires the role-modification
// check, and membership targets that are themselves reserved are treated like
// a role grant.
func (a *Agent) checkRoleOptions(rule, roleName string, options []stmt.RoleOption, ctx ExecContext) *Denial {
	if len(options) > 0 && !a.store.IsReservedName(roleName) {
		return &Denial{Rule: rule, Object: roleName,
			Reason: fmt.Sprintf("role is not in the reserved superuser allowlist (%s)",
				strings.Join(a.store.ReservedRoles(), ","))}
	}
	for _, opt := range options {
		switch opt.Name {
		case "superuser":
			if opt.Bool() {
				if d := a.roleChangeDenied(rule, roleName, ctx); d != nil {
					return d
				}
			}
		case "addroleto":
			for _, member := range strings.Split(opt.Value, ",") {
				member = strings.TrimSpace(member)
				if member == "" {
					continue
				}
				if a.isReserved(member) {
					if d := a.roleChangeDenied(rule, member, ctx); d != nil {
						return d
					}
				}
			}
		}
	}
	return nil
}

func (a *Agent) checkCreateRole(ev stmt.CreateRole, ctx ExecContext) *Denial {
	return a.checkRoleOptions("create-role", ev.RoleName, ev.Options, ctx)
}

func (a *Agent) checkAlterRole(ev stmt.AlterRole, ctx ExecContext) *Denial {
	// Altering a role that is already superuser-equivalent is itself a
	// superuser modification, before any option is considered.
	if a.isReserved(ev.RoleName) {
		if d := a.roleChangeDenied("alter-role", ev.RoleName, ctx); d != nil {
			return d
		}
	}
	return a.checkRoleOptions("alter-role", ev.RoleName, ev.Options, ctx)
}

func (a *Agent) checkGrantRole(ev stmt.GrantRole, ctx ExecContext) *Denial {
	for _, role := range ev.GrantedRoles {
		if a.isReserved(role) {
			if d := a.roleChangeDenied("grant-role", role, ctx); d != nil {
				return d
			}
		}
	}
	return nil
}

func (a *Agent) checkCreateExtension(ev stmt.CreateExtension) *Denial {
	if deniedExtensions[ev.ExtensionName] {
		return &Denial{Rule: "create-extension", Object: ev.ExtensionName,
			Reason: "extension not allowed"}
	}
	return nil
}
