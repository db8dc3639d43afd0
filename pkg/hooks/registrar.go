package hooks

import (
	"errors"

	"github.com/dbsentinel/pggatekeeper/pkg/policy"
	"github.com/dbsentinel/pggatekeeper/pkg/stmt"
)

// ErrNotPreload means Install ran outside the engine's preload initialization
// phase. The process must treat this as fatal at startup: running without the
// hooks means running unprotected.
var ErrNotPreload = errors.New("gatekeeper hooks can only be installed during preload initialization")

// ErrAlreadyInstalled means Install ran twice without an intervening Uninstall
var ErrAlreadyInstalled = errors.New("gatekeeper hooks already installed")

// Registrar installs the agent's dispatcher at each interception point while
// recording whatever handler was there before, and invokes that handler (or
// the standard one) on every call so independent extensions compose. The
// recorded links are written once at install and once at uninstall, outside
// session traffic.
type Registrar struct {
	agent  *policy.Agent
	points *Points

	installed bool

	prevUtility       UtilityHandler
	prevExecutorStart ExecutorStartHandler
	prevObjectAccess  ObjectAccessHandler
}

// NewRegistrar creates a registrar for the given agent and hook points
func NewRegistrar(agent *policy.Agent, points *Points) *Registrar {
	return &Registrar{agent: agent, points: points}
}

// Install records the current handler at each point and installs the
// gatekeeper's handlers. It fails outside the preload phase and on double
// install.
func (r *Registrar) Install() error {
	if r.installed {
		return ErrAlreadyInstalled
	}
	if !r.points.InPreload() {
		return ErrNotPreload
	}

	r.prevUtility = r.points.Utility
	r.prevExecutorStart = r.points.ExecutorStart
	r.prevObjectAccess = r.points.ObjectAccess

	r.points.Utility = r.utilityHook
	r.points.ExecutorStart = r.executorStartHook
	r.points.ObjectAccess = r.objectAccessHook

	r.installed = true
	policy.Logger.Info("gatekeeper hooks installed")
	return nil
}

// Uninstall restores the handlers recorded by Install, exactly undoing it
func (r *Registrar) Uninstall() {
	if !r.installed {
		return
	}
	r.points.Utility = r.prevUtility
	r.points.ExecutorStart = r.prevExecutorStart
	r.points.ObjectAccess = r.prevObjectAccess

	r.prevUtility = nil
	r.prevExecutorStart = nil
	r.prevObjectAccess = nil
	r.installed = false
	policy.Logger.Info("gatekeeper hooks uninstalled")
}

// Installed reports whether the registrar's handlers are currently in place
func (r *Registrar) Installed() bool {
	return r.installed
}

// utilityHook evaluates policy, then forwards to the previously installed
// handler or the engine's standard handler. A denial returns without
// forwarding; the statement never reaches the executor.
func (r *Registrar) utilityHook(ev stmt.Statement, ctx policy.ExecContext) error {
	if err := r.agent.Dispatch(ev, ctx); err != nil {
		return err
	}
	if r.prevUtility != nil {
		return r.prevUtility(ev, ctx)
	}
	if r.points.StandardUtility != nil {
		return r.points.StandardUtility(ev, ctx)
	}
	return nil
}

// executorStartHook is a reserved extension point: no policy decision,
// forward only.
func (r *Registrar) executorStartHook(q *Query) error {
	if r.prevExecutorStart != nil {
		return r.prevExecutorStart(q)
	}
	if r.points.StandardExecutorStart != nil {
		return r.points.StandardExecutorStart(q)
	}
	return nil
}

// objectAccessHook is a stub: no policy decision, and no standard handler to
// fall back to, so it forwards only when a previous handler was recorded.
func (r *Registrar) objectAccessHook(ev ObjectAccess) error {
	if r.prevObjectAccess != nil {
		return r.prevObjectAccess(ev)
	}
	return nil
}
