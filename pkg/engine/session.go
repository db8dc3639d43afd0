package engine

import (
	"database/sql"
	"fmt"

	xsqlparser "github.com/xwb1989/sqlparser"

	"github.com/dbsentinel/pggatekeeper/pkg/hooks"
	"github.com/dbsentinel/pggatekeeper/pkg/stmt"
)

// Session is one sequential execution context. It implements
// policy.ExecContext: elevation is derived from the session/current user
// split the way the host derives it from its user identifiers.
type Session struct {
	engine      *Engine
	sessionUser string
	currentUser string
	restricted  int
}

// SessionUser returns the user the session authenticated as
func (s *Session) SessionUser() string { return s.sessionUser }

// CurrentUser returns the effective user for the next statement
func (s *Session) CurrentUser() string { return s.currentUser }

// SetRole switches the current user, emulating SET ROLE or entry into a
// SECURITY DEFINER function owned by that role.
func (s *Session) SetRole(name string) error {
	exists, err := s.engine.catalog.RoleExists(name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("role %q does not exist", name)
	}
	s.currentUser = name
	return nil
}

// ResetRole restores the current user to the session user
func (s *Session) ResetRole() {
	s.currentUser = s.sessionUser
}

// EnterSecurityRestrictedOperation brackets an operation in which the engine
// itself limits allowed actions (extension scripts, VACUUM and similar).
// Calls nest.
func (s *Session) EnterSecurityRestrictedOperation() {
	s.restricted++
}

// LeaveSecurityRestrictedOperation ends the innermost restricted operation
func (s *Session) LeaveSecurityRestrictedOperation() {
	if s.restricted > 0 {
		s.restricted--
	}
}

// SecurityRestricted implements policy.ExecContext
func (s *Session) SecurityRestricted() bool {
	return s.restricted > 0
}

// Elevated implements policy.ExecContext. The context is elevated when the
// current user differs from the session user and holds superuser while the
// session user does not.
func (s *Session) Elevated() bool {
	if s.currentUser == s.sessionUser {
		return false
	}
	currentSu, err := s.engine.catalog.IsSuperuser(s.currentUser)
	if err != nil || !currentSu {
		return false
	}
	sessionSu, err := s.engine.catalog.IsSuperuser(s.sessionUser)
	if err != nil {
		return true
	}
	return !sessionSu
}

// Exec runs one statement. Administrative statements go through the utility
// hook chain; everything else passes the executor-start hook and runs on the
// backing database. A policy denial surfaces as the returned error and the
// statement never executes.
func (s *Session) Exec(sqlText string) error {
	if ev, ok := stmt.ParseAdmin(sqlText); ok {
		return s.engine.points.RunUtility(ev, s)
	}
	if err := s.engine.points.RunExecutorStart(&hooks.Query{SQL: sqlText}); err != nil {
		return err
	}
	if parsed, err := xsqlparser.Parse(sqlText); err == nil {
		switch parsed.(type) {
		case *xsqlparser.Select, *xsqlparser.Union:
			rows, err := s.engine.db.Query(sqlText)
			if err != nil {
				return err
			}
			return rows.Close()
		}
	}
	_, err := s.engine.db.Exec(sqlText)
	return err
}

// Query runs a query statement and returns its rows
func (s *Session) Query(sqlText string) (*sql.Rows, error) {
	if _, ok := stmt.ParseAdmin(sqlText); ok {
		return nil, fmt.Errorf("not a query: %s", sqlText)
	}
	if err := s.engine.points.RunExecutorStart(&hooks.Query{SQL: sqlText}); err != nil {
		return nil, err
	}
	return s.engine.db.Query(sqlText)
}
