// Package stmt defines the statement events the gatekeeper inspects and a
// parser that recognizes the administrative statements it cares about.
package stmt

import "strings"

// Kind identifies the class of an intercepted statement
type Kind int

const (
	KindOther Kind = iota
	KindDataCopy
	KindRoleCreate
	KindRoleAlter
	KindRoleDrop
	KindRoleGrant
	KindVariableSet
	KindFunctionCreate
	KindExtensionCreate
)

// String implements the Stringer interface for Kind
func (k Kind) String() string {
	switch k {
	case KindDataCopy:
		return "COPY"
	case KindRoleCreate:
		return "CREATE ROLE"
	case KindRoleAlter:
		return "ALTER ROLE"
	case KindRoleDrop:
		return "DROP ROLE"
	case KindRoleGrant:
		return "GRANT ROLE"
	case KindVariableSet:
		return "SET"
	case KindFunctionCreate:
		return "CREATE FUNCTION"
	case KindExtensionCreate:
		return "CREATE EXTENSION"
	default:
		return "OTHER"
	}
}

// Statement is the closed set of statement events. Each concrete type carries
// only the payload the policy rules need; everything else stays with the host
// engine's own representation.
type Statement interface {
	Kind() Kind
}

// RoleOption is a single (name, value) option on a CREATE ROLE or ALTER ROLE
// statement. Flag options like SUPERUSER/NOSUPERUSER normalize to the same
// option name with an explicit boolean value.
type RoleOption struct {
	Name  string
	Value string
}

// Bool interprets the option value as a boolean. An empty value means true
// (an option given without an argument asserts the flag). Unrecognized text
// also reads as true, which errs on the side of triggering policy checks.
func (o RoleOption) Bool() bool {
	switch strings.ToLower(o.Value) {
	case "", "true", "t", "on", "yes", "1":
		return true
	case "false", "f", "off", "no", "0":
		return false
	default:
		return true
	}
}

// Copy is a COPY statement. Filename is empty for STDIN/STDOUT copies; for
// program copies it holds the command text.
type Copy struct {
	TableName string
	IsFrom    bool
	IsProgram bool
	Filename  string
}

// Kind implements Statement
func (Copy) Kind() Kind { return KindDataCopy }

// HasFileTarget reports whether the copy source or sink is a filesystem path
// rather than an in-session stream.
func (c Copy) HasFileTarget() bool { return !c.IsProgram && c.Filename != "" }

// CreateRole is a CREATE ROLE/USER/GROUP statement
type CreateRole struct {
	RoleName string
	Options  []RoleOption
}

// Kind implements Statement
func (CreateRole) Kind() Kind { return KindRoleCreate }

// AlterRole is an ALTER ROLE/USER statement, including the SET-variable form
// (which carries no role options).
type AlterRole struct {
	RoleName string
	Options  []RoleOption
}

// Kind implements Statement
func (AlterRole) Kind() Kind { return KindRoleAlter }

// DropRole is a DROP ROLE/USER/GROUP statement
type DropRole struct {
	RoleNames []string
}

// Kind implements Statement
func (DropRole) Kind() Kind { return KindRoleDrop }

// GrantRole is a GRANT role TO role or REVOKE role FROM role statement.
// Privilege grants (GRANT ... ON object) are not role grants and classify
// as Other.
type GrantRole struct {
	GrantedRoles []string
	Grantees     []string
	IsGrant      bool
}

// Kind implements Statement
func (GrantRole) Kind() Kind { return KindRoleGrant }

// VariableSet is a SET statement
type VariableSet struct {
	Name    string
	Value   string
	IsLocal bool
}

// Kind implements Statement
func (VariableSet) Kind() Kind { return KindVariableSet }

// CreateFunction is a CREATE [OR REPLACE] FUNCTION statement
type CreateFunction struct {
	FunctionName string
}

// Kind implements Statement
func (CreateFunction) Kind() Kind { return KindFunctionCreate }

// CreateExtension is a CREATE EXTENSION statement
type CreateExtension struct {
	ExtensionName string
}

// Kind implements Statement
func (CreateExtension) Kind() Kind { return KindExtensionCreate }

// Other is any statement the gatekeeper has no opinion about
type Other struct {
	SQL string
}

// Kind implements Statement
func (Other) Kind() Kind { return KindOther }
