package engine

import (
	"database/sql"
	"fmt"
)

// Catalog is the engine's role catalog, backed by the same SQLite database
// the engine serves. It implements policy.RoleResolver: a role is reserved
// when it is a superuser or a member of a superuser role.
type Catalog struct {
	db *sql.DB
}

const catalogSchema = `
CREATE TABLE IF NOT EXISTS gk_roles (
	name         TEXT PRIMARY KEY,
	is_superuser INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS gk_role_members (
	role   TEXT NOT NULL,
	member TEXT NOT NULL,
	PRIMARY KEY (role, member)
);
CREATE TABLE IF NOT EXISTS gk_extensions (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS gk_functions (
	name TEXT PRIMARY KEY
);`

func newCatalog(db *sql.DB) (*Catalog, error) {
	if _, err := db.Exec(catalogSchema); err != nil {
		return nil, fmt.Errorf("initializing catalog schema: %w", err)
	}
	// The bootstrap superuser always exists.
	if _, err := db.Exec(`INSERT OR IGNORE INTO gk_roles (name, is_superuser) VALUES ('postgres', 1)`); err != nil {
		return nil, err
	}
	return &Catalog{db: db}, nil
}

// RoleExists reports whether a role is present in the catalog
func (c *Catalog) RoleExists(name string) (bool, error) {
	var n int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM gk_roles WHERE name = ?`, name).Scan(&n)
	return n > 0, err
}

// IsSuperuser reports whether the role holds the superuser attribute
func (c *Catalog) IsSuperuser(name string) (bool, error) {
	var su int
	err := c.db.QueryRow(`SELECT is_superuser FROM gk_roles WHERE name = ?`, name).Scan(&su)
	if err == sql.ErrNoRows {
		return false, fmt.Errorf("role %q does not exist", name)
	}
	if err != nil {
		return false, err
	}
	return su != 0, nil
}

// IsReserved implements policy.RoleResolver
func (c *Catalog) IsReserved(name string) (bool, error) {
	su, err := c.IsSuperuser(name)
	if err != nil {
		return false, err
	}
	if su {
		return true, nil
	}
	var n int
	err = c.db.QueryRow(`
		SELECT COUNT(*)
		FROM gk_role_members rm
		JOIN gk_roles r ON r.name = rm.role
		WHERE rm.member = ? AND r.is_superuser = 1`, name).Scan(&n)
	return n > 0, err
}

// CreateRole adds a role, optionally with the superuser attribute and initial
// memberships.
func (c *Catalog) CreateRole(name string, superuser bool, memberOf []string) error {
	exists, err := c.RoleExists(name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("role %q already exists", name)
	}
	su := 0
	if superuser {
		su = 1
	}
	if _, err := c.db.Exec(`INSERT INTO gk_roles (name, is_superuser) VALUES (?, ?)`, name, su); err != nil {
		return err
	}
	for _, role := range memberOf {
		if err := c.Grant(role, name); err != nil {
			return err
		}
	}
	return nil
}

// SetSuperuser updates the superuser attribute of an existing role
func (c *Catalog) SetSuperuser(name string, superuser bool) error {
	su := 0
	if superuser {
		su = 1
	}
	res, err := c.db.Exec(`UPDATE gk_roles SET is_superuser = ? WHERE name = ?`, su, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("role %q does not exist", name)
	}
	return nil
}

// DropRole removes a role and its memberships
func (c *Catalog) DropRole(name string) error {
	exists, err := c.RoleExists(name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("role %q does not exist", name)
	}
	if _, err := c.db.Exec(`DELETE FROM gk_role_members WHERE role = ? OR member = ?`, name, name); err != nil {
		return err
	}
	_, err = c.db.Exec(`DELETE FROM gk_roles WHERE name = ?`, name)
	return err
}

// Grant makes member a member of role
func (c *Catalog) Grant(role, member string) error {
	for _, name := range []string{role, member} {
		exists, err := c.RoleExists(name)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("role %q does not exist", name)
		}
	}
	_, err := c.db.Exec(`INSERT OR IGNORE INTO gk_role_members (role, member) VALUES (?, ?)`, role, member)
	return err
}

// Revoke removes member's membership in role
func (c *Catalog) Revoke(role, member string) error {
	_, err := c.db.Exec(`DELETE FROM gk_role_members WHERE role = ? AND member = ?`, role, member)
	return err
}

// CreateExtension records an installed extension
func (c *Catalog) CreateExtension(name string) error {
	_, err := c.db.Exec(`INSERT OR IGNORE INTO gk_extensions (name) VALUES (?)`, name)
	return err
}

// HasExtension reports whether an extension is installed
func (c *Catalog) HasExtension(name string) (bool, error) {
	var n int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM gk_extensions WHERE name = ?`, name).Scan(&n)
	return n > 0, err
}

// CreateFunction records a created function
func (c *Catalog) CreateFunction(name string) error {
	_, err := c.db.Exec(`INSERT OR REPLACE INTO gk_functions (name) VALUES (?)`, name)
	return err
}

// HasFunction reports whether a function exists
func (c *Catalog) HasFunction(name string) (bool, error) {
	var n int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM gk_functions WHERE name = ?`, name).Scan(&n)
	return n > 0, err
}
