package hooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsentinel/pggatekeeper/pkg/config"
	"github.com/dbsentinel/pggatekeeper/pkg/policy"
	"github.com/dbsentinel/pggatekeeper/pkg/stmt"
)

type callCounter struct {
	utility       int
	executorStart int
	objectAccess  int
	standard      int
}

func newTestPoints(c *callCounter) *Points {
	return NewPoints(
		func(ev stmt.Statement, ctx policy.ExecContext) error {
			c.standard++
			return nil
		},
		func(q *Query) error { return nil },
	)
}

func newTestRegistrar(t *testing.T, points *Points, strict bool) *Registrar {
	t.Helper()
	store := config.NewStore()
	if strict {
		require.NoError(t, store.Set(config.ParamStrictMode, "true", config.SessionScope{Privileged: true}))
	}
	return NewRegistrar(policy.NewAgent(store, policy.StaticResolver{}), points)
}

func TestInstallOutsidePreloadFails(t *testing.T) {
	points := newTestPoints(&callCounter{})
	points.EndPreload()

	r := newTestRegistrar(t, points, false)
	assert.ErrorIs(t, r.Install(), ErrNotPreload)
	assert.False(t, r.Installed())
	assert.Nil(t, points.Utility)
}

func TestDoubleInstallFails(t *testing.T) {
	points := newTestPoints(&callCounter{})
	r := newTestRegistrar(t, points, false)
	require.NoError(t, r.Install())
	assert.ErrorIs(t, r.Install(), ErrAlreadyInstalled)
}

func TestUninstallRestoresEmptySlots(t *testing.T) {
	points := newTestPoints(&callCounter{})
	r := newTestRegistrar(t, points, false)
	require.NoError(t, r.Install())
	require.NotNil(t, points.Utility)

	r.Uninstall()
	assert.Nil(t, points.Utility)
	assert.Nil(t, points.ExecutorStart)
	assert.Nil(t, points.ObjectAccess)
	assert.False(t, r.Installed())

	// The registrar can be installed again after a full uninstall.
	assert.NoError(t, r.Install())
}

func TestUninstallRestoresPriorHandlers(t *testing.T) {
	counter := &callCounter{}
	points := newTestPoints(counter)

	// Another extension installed its handlers first.
	points.Utility = func(ev stmt.Statement, ctx policy.ExecContext) error {
		counter.utility++
		return nil
	}
	points.ExecutorStart = func(q *Query) error {
		counter.executorStart++
		return nil
	}
	points.ObjectAccess = func(ev ObjectAccess) error {
		counter.objectAccess++
		return nil
	}

	r := newTestRegistrar(t, points, false)
	require.NoError(t, r.Install())
	r.Uninstall()

	// The restored handlers are the prior extension's: invoking each point
	// reaches them, not the standard handler and not the gatekeeper.
	require.NoError(t, points.RunUtility(stmt.Other{SQL: "SELECT 1"}, policy.StaticContext{}))
	require.NoError(t, points.RunExecutorStart(&Query{SQL: "SELECT 1"}))
	require.NoError(t, points.RunObjectAccess(ObjectAccess{Access: AccessFunctionExecute, Object: "f"}))
	assert.Equal(t, 1, counter.utility)
	assert.Equal(t, 1, counter.executorStart)
	assert.Equal(t, 1, counter.objectAccess)
	assert.Equal(t, 0, counter.standard)
}

func TestUtilityChainForwardsAfterAllow(t *testing.T) {
	counter := &callCounter{}
	points := newTestPoints(counter)
	prior := 0
	points.Utility = func(ev stmt.Statement, ctx policy.ExecContext) error {
		prior++
		return nil
	}

	r := newTestRegistrar(t, points, false)
	require.NoError(t, r.Install())

	require.NoError(t, points.RunUtility(stmt.CreateRole{RoleName: "alice"}, policy.StaticContext{}))
	assert.Equal(t, 1, prior, "allowed statement must reach the prior handler")
	assert.Equal(t, 0, counter.standard, "prior handler owns the rest of the chain")
}

func TestUtilityChainFallsBackToStandard(t *testing.T) {
	counter := &callCounter{}
	points := newTestPoints(counter)

	r := newTestRegistrar(t, points, false)
	require.NoError(t, r.Install())

	require.NoError(t, points.RunUtility(stmt.CreateRole{RoleName: "alice"}, policy.StaticContext{}))
	assert.Equal(t, 1, counter.standard)
}

func TestDenialStopsTheChain(t *testing.T) {
	counter := &callCounter{}
	points := newTestPoints(counter)
	prior := 0
	points.Utility = func(ev stmt.Statement, ctx policy.ExecContext) error {
		prior++
		return nil
	}

	r := newTestRegistrar(t, points, true)
	require.NoError(t, r.Install())

	ev := stmt.Copy{TableName: "t", Filename: "/tmp/x"}
	err := points.RunUtility(ev, policy.StaticContext{})
	var d *policy.Denial
	require.ErrorAs(t, err, &d)
	assert.Equal(t, 0, prior, "denied statement must not be forwarded")
	assert.Equal(t, 0, counter.standard)
}

func TestExecutorStartForwardsOnly(t *testing.T) {
	counter := &callCounter{}
	standardStarts := 0
	points := NewPoints(
		func(ev stmt.Statement, ctx policy.ExecContext) error { counter.standard++; return nil },
		func(q *Query) error { standardStarts++; return nil },
	)

	r := newTestRegistrar(t, points, true)
	require.NoError(t, r.Install())

	require.NoError(t, points.RunExecutorStart(&Query{SQL: "SELECT 1"}))
	assert.Equal(t, 1, standardStarts)
}

func TestObjectAccessHasNoStandardFallback(t *testing.T) {
	points := newTestPoints(&callCounter{})
	r := newTestRegistrar(t, points, false)
	require.NoError(t, r.Install())

	// No prior handler was recorded: the stub forwards to nothing.
	assert.NoError(t, points.RunObjectAccess(ObjectAccess{Access: AccessFunctionExecute, Object: "f"}))
}

func TestObjectAccessForwardsToPrior(t *testing.T) {
	points := newTestPoints(&callCounter{})
	prior := 0
	points.ObjectAccess = func(ev ObjectAccess) error {
		prior++
		return nil
	}
	r := newTestRegistrar(t, points, false)
	require.NoError(t, r.Install())

	require.NoError(t, points.RunObjectAccess(ObjectAccess{Access: AccessFunctionExecute, Object: "f"}))
	assert.Equal(t, 1, prior)
}
