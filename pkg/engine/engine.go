// Package engine is a small SQLite-backed host engine for the gatekeeper. It
// owns the hook points, a role catalog and a configuration store, and routes
// administrative statements through the utility hook chain the way the real
// host routes its utility statements. It exists so the policy layer can be
// exercised end to end; it is not a complete database server.
package engine

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dbsentinel/pggatekeeper/pkg/config"
	"github.com/dbsentinel/pggatekeeper/pkg/hooks"
	"github.com/dbsentinel/pggatekeeper/pkg/policy"
	"github.com/dbsentinel/pggatekeeper/pkg/stmt"
)

// Config holds the engine's startup configuration
type Config struct {
	// DBPath is the SQLite database path; empty means in-memory.
	DBPath string
	// Store is the gatekeeper configuration store; nil means defaults.
	Store *config.Store
}

// Engine is the demo host. Creating it starts the preload phase; the first
// session ends it and seals the configuration store.
type Engine struct {
	db        *sql.DB
	store     *config.Store
	catalog   *Catalog
	points    *hooks.Points
	agent     *policy.Agent
	registrar *hooks.Registrar
}

// New opens the engine in the preload phase
func New(cfg Config) (*Engine, error) {
	path := cfg.DBPath
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}
	catalog, err := newCatalog(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	store := cfg.Store
	if store == nil {
		store = config.NewStore()
	}

	e := &Engine{db: db, store: store, catalog: catalog}
	e.points = hooks.NewPoints(e.executeUtility, func(q *hooks.Query) error { return nil })
	e.agent = policy.NewAgent(store, catalog)
	e.registrar = hooks.NewRegistrar(e.agent, e.points)
	return e, nil
}

// InstallGatekeeper installs the policy hooks. It must run before the first
// session; afterwards it fails with hooks.ErrNotPreload, and the caller must
// treat that as fatal rather than serve unprotected sessions.
func (e *Engine) InstallGatekeeper() error {
	return e.registrar.Install()
}

// UninstallGatekeeper restores the handlers present before installation
func (e *Engine) UninstallGatekeeper() {
	e.registrar.Uninstall()
}

// Points exposes the hook points for additional extensions
func (e *Engine) Points() *hooks.Points { return e.points }

// Agent returns the policy agent
func (e *Engine) Agent() *policy.Agent { return e.agent }

// Store returns the configuration store
func (e *Engine) Store() *config.Store { return e.store }

// Catalog returns the role catalog
func (e *Engine) Catalog() *Catalog { return e.catalog }

// DB returns the underlying database connection
func (e *Engine) DB() *sql.DB { return e.db }

// Session opens a session authenticated as the given role, ending the
// preload phase. The role must exist in the catalog.
func (e *Engine) Session(user string) (*Session, error) {
	exists, err := e.catalog.RoleExists(user)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("role %q does not exist", user)
	}
	e.points.EndPreload()
	e.store.Seal()
	return &Session{engine: e, sessionUser: user, currentUser: user}, nil
}

// InvokeFunction fires the object-access hook for a function call and then
// runs the engine's own (trivial) function execution.
func (e *Engine) InvokeFunction(name string) error {
	if err := e.points.RunObjectAccess(hooks.ObjectAccess{
		Access: hooks.AccessFunctionExecute,
		Object: name,
	}); err != nil {
		return err
	}
	exists, err := e.catalog.HasFunction(name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("function %q does not exist", name)
	}
	return nil
}

// Close shuts the engine down
func (e *Engine) Close() error {
	return e.db.Close()
}

// executeUtility is the engine's standard utility handler: it applies
// administrative statements that survived the hook chain.
func (e *Engine) executeUtility(ev stmt.Statement, ctx policy.ExecContext) error {
	switch s := ev.(type) {
	case stmt.CreateRole:
		superuser := false
		var memberOf []string
		for _, opt := range s.Options {
			switch opt.Name {
			case "superuser":
				superuser = opt.Bool()
			case "addroleto":
				for _, m := range strings.Split(opt.Value, ",") {
					if m = strings.TrimSpace(m); m != "" {
						memberOf = append(memberOf, m)
					}
				}
			}
		}
		return e.catalog.CreateRole(s.RoleName, superuser, memberOf)
	case stmt.AlterRole:
		for _, opt := range s.Options {
			if opt.Name == "superuser" {
				if err := e.catalog.SetSuperuser(s.RoleName, opt.Bool()); err != nil {
					return err
				}
			}
		}
		return nil
	case stmt.DropRole:
		for _, name := range s.RoleNames {
			if err := e.catalog.DropRole(name); err != nil {
				return err
			}
		}
		return nil
	case stmt.GrantRole:
		for _, role := range s.GrantedRoles {
			for _, grantee := range s.Grantees {
				var err error
				if s.IsGrant {
					err = e.catalog.Grant(role, grantee)
				} else {
					err = e.catalog.Revoke(role, grantee)
				}
				if err != nil {
					return err
				}
			}
		}
		return nil
	case stmt.CreateExtension:
		return e.catalog.CreateExtension(s.ExtensionName)
	case stmt.CreateFunction:
		return e.catalog.CreateFunction(s.FunctionName)
	case stmt.Copy:
		return e.executeCopy(s)
	case stmt.VariableSet:
		return e.executeSet(s, ctx)
	}
	return nil
}

// executeSet applies a SET statement. Gatekeeper parameters go through the
// store's scoped write path; SET ROLE switches the session's current user.
func (e *Engine) executeSet(s stmt.VariableSet, ctx policy.ExecContext) error {
	sess, _ := ctx.(*Session)
	if config.IsParam(s.Name) {
		scope := config.SessionScope{}
		if sess != nil {
			su, err := e.catalog.IsSuperuser(sess.CurrentUser())
			if err != nil {
				return err
			}
			scope.Privileged = su
			scope.SecurityRestricted = sess.SecurityRestricted()
		}
		return e.store.Set(s.Name, s.Value, scope)
	}
	if s.Name == "role" && sess != nil {
		if s.Value == "" || strings.EqualFold(s.Value, "none") {
			sess.ResetRole()
			return nil
		}
		return sess.SetRole(s.Value)
	}
	// Other variables are not modeled by this engine.
	return nil
}
