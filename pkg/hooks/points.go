// Package hooks models the host engine's interception points and the
// chain-of-responsibility registrar that installs the gatekeeper into them
// without dropping any previously installed handler.
package hooks

import (
	"github.com/dbsentinel/pggatekeeper/pkg/policy"
	"github.com/dbsentinel/pggatekeeper/pkg/stmt"
)

// UtilityHandler runs before a utility (administrative) statement executes.
// Returning an error aborts the statement; the handler otherwise forwards to
// the next link in the chain.
type UtilityHandler func(ev stmt.Statement, ctx policy.ExecContext) error

// Query is the executor-start view of a planned query
type Query struct {
	SQL string
}

// ExecutorStartHandler runs before query-plan execution starts
type ExecutorStartHandler func(q *Query) error

// AccessType identifies an object-access sub-event
type AccessType int

// AccessFunctionExecute fires around function invocation
const AccessFunctionExecute AccessType = iota

// ObjectAccess describes one post-object-access event
type ObjectAccess struct {
	Access AccessType
	Object string
}

// ObjectAccessHandler runs on object-access events. Unlike the other two
// points there is no standard handler behind it; when no handler is
// installed, nothing runs.
type ObjectAccessHandler func(ev ObjectAccess) error

// Points holds the engine's process-wide handler slots, one per interception
// point, plus the engine's standard handlers behind them. Slots are written
// during preload initialization and at shutdown only, never while sessions
// are dispatching, so they carry no lock of their own.
type Points struct {
	Utility       UtilityHandler
	ExecutorStart ExecutorStartHandler
	ObjectAccess  ObjectAccessHandler

	StandardUtility       UtilityHandler
	StandardExecutorStart ExecutorStartHandler

	preload bool
}

// NewPoints creates hook points in the preload phase with the engine's
// standard handlers installed behind them.
func NewPoints(standardUtility UtilityHandler, standardExecutorStart ExecutorStartHandler) *Points {
	return &Points{
		StandardUtility:       standardUtility,
		StandardExecutorStart: standardExecutorStart,
		preload:               true,
	}
}

// EndPreload leaves the preload phase. Hook installation is rejected from
// this point on.
func (p *Points) EndPreload() {
	p.preload = false
}

// InPreload reports whether hook installation is still permitted
func (p *Points) InPreload() bool {
	return p.preload
}

// RunUtility invokes the utility chain for one statement, falling back to the
// standard handler when no hook is installed.
func (p *Points) RunUtility(ev stmt.Statement, ctx policy.ExecContext) error {
	if p.Utility != nil {
		return p.Utility(ev, ctx)
	}
	if p.StandardUtility != nil {
		return p.StandardUtility(ev, ctx)
	}
	return nil
}

// RunExecutorStart invokes the executor-start chain
func (p *Points) RunExecutorStart(q *Query) error {
	if p.ExecutorStart != nil {
		return p.ExecutorStart(q)
	}
	if p.StandardExecutorStart != nil {
		return p.StandardExecutorStart(q)
	}
	return nil
}

// RunObjectAccess invokes the object-access chain, if any handler exists
func (p *Points) RunObjectAccess(ev ObjectAccess) error {
	if p.ObjectAccess != nil {
		return p.ObjectAccess(ev)
	}
	return nil
}
