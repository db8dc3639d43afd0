// Package config holds the gatekeeper's run-time tunables and enforces their
// mutation scope: who may set them, and whether they can change without a
// process restart.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Parameter names as exposed on the host's configuration surface
const (
	ParamEnabled       = "gatekeeper.enabled"
	ParamStrictMode    = "gatekeeper.strict_mode"
	ParamReservedRoles = "gatekeeper.reserved_roles"
)

// Defaults
const (
	DefaultEnabled       = true
	DefaultStrictMode    = false
	DefaultReservedRoles = "postgres"
)

// ParamDef describes one parameter's mutation scope. All gatekeeper
// parameters are superuser-only, are never written to persisted configuration
// snapshots, and all but the enabled flag require a restart to change.
type ParamDef struct {
	Name        string
	RestartOnly bool
	NoPersist   bool
}

// SessionScope describes the session attempting a configuration write
type SessionScope struct {
	Privileged         bool
	SecurityRestricted bool
}

// Store is the process-wide configuration store. Rules read it on every
// policy-checked statement; writes only come through the host's privileged
// configuration path.
type Store struct {
	mu            sync.RWMutex
	enabled       bool
	strictMode    bool
	reservedRoles []string
	sealed        bool
}

// NewStore creates a store with default values: agent enabled, strict mode
// off, reserved roles "postgres".
func NewStore() *Store {
	return &Store{
		enabled:       DefaultEnabled,
		strictMode:    DefaultStrictMode,
		reservedRoles: parseRoleList(DefaultReservedRoles),
	}
}

// Params returns the mutation-scope metadata for every gatekeeper parameter
func Params() []ParamDef {
	return []ParamDef{
		{Name: ParamEnabled, RestartOnly: false, NoPersist: true},
		{Name: ParamStrictMode, RestartOnly: true, NoPersist: true},
		{Name: ParamReservedRoles, RestartOnly: true, NoPersist: true},
	}
}

// Seal marks the end of process startup. Restart-only parameters reject
// writes from this point on; the enabled flag stays live-reloadable.
func (s *Store) Seal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
}

// Sealed reports whether startup has finished
func (s *Store) Sealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealed
}

// Set writes one parameter on behalf of the given session. Ordinary sessions
// and security-restricted contexts are rejected regardless of the parameter.
func (s *Store) Set(name, value string, scope SessionScope) error {
	if !scope.Privileged {
		return fmt.Errorf("permission denied to set parameter %q", name)
	}
	if scope.SecurityRestricted {
		return fmt.Errorf("cannot set parameter %q in a security-restricted operation", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case ParamEnabled:
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
		s.enabled = b
	case ParamStrictMode:
		if s.sealed {
			return fmt.Errorf("parameter %q cannot be changed without restarting the server", name)
		}
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
		s.strictMode = b
	case ParamReservedRoles:
		if s.sealed {
			return fmt.Errorf("parameter %q cannot be changed without restarting the server", name)
		}
		s.reservedRoles = parseRoleList(value)
	default:
		return fmt.Errorf("unrecognized configuration parameter %q", name)
	}
	return nil
}

// IsParam reports whether name is a gatekeeper configuration parameter
func IsParam(name string) bool {
	switch name {
	case ParamEnabled, ParamStrictMode, ParamReservedRoles:
		return true
	}
	return false
}

// Enabled reports whether the agent is enabled at all
func (s *Store) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// StrictMode reports whether strict enforcement is on
func (s *Store) StrictMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.strictMode
}

// ReservedRoles returns the configured reserved-superuser role names. An
// empty or unparseable configured value yields an empty list, meaning no role
// name is permitted.
func (s *Store) ReservedRoles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.reservedRoles))
	copy(out, s.reservedRoles)
	return out
}

// IsReservedName reports whether name appears in the reserved-role allowlist
func (s *Store) IsReservedName(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reservedRoles {
		if r == name {
			return true
		}
	}
	return false
}

func parseRoleList(raw string) []string {
	var roles []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			roles = append(roles, part)
		}
	}
	return roles
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("invalid boolean value %q", value)
	}
	return b, nil
}
