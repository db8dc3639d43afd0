// Package pggatekeeper provides an in-process authorization policy layer for
// a SQL engine: it hooks the engine's statement-execution pipeline and
// enforces restrictions on privilege escalation and file or program access
// that are stricter than, and independent of, the engine's own privilege
// system.
package pggatekeeper

import (
	"github.com/dbsentinel/pggatekeeper/pkg/config"
	"github.com/dbsentinel/pggatekeeper/pkg/hooks"
	"github.com/dbsentinel/pggatekeeper/pkg/policy"
)

// NewStore creates a configuration store with the default policy: agent
// enabled, strict mode off, reserved roles "postgres".
func NewStore() *config.Store {
	return config.NewStore()
}

// NewAgent creates a policy agent over the given store and role resolver
func NewAgent(store *config.Store, resolver policy.RoleResolver) *policy.Agent {
	return policy.NewAgent(store, resolver)
}

// NewRegistrar creates a hook chain registrar for the agent
func NewRegistrar(agent *policy.Agent, points *hooks.Points) *hooks.Registrar {
	return hooks.NewRegistrar(agent, points)
}

// Re-export types for convenience
type (
	Agent     = policy.Agent
	Denial    = policy.Denial
	Store     = config.Store
	Registrar = hooks.Registrar
	Points    = hooks.Points
)
