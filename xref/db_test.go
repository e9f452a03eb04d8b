package xref

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"xrefgen/index"
)

type testLog struct{ lines []string }

func (l *testLog) Log(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *testLog) Verbose(format string, args ...any) {}

func sample() *XRef {
	x := New()
	x.AddEntity(Entity{ID: "pkg::p", Name: "p", Kind: "package"})
	x.AddEntity(Entity{ID: "p::main", Name: "main", Kind: "function", Package: "p", File: "a.go", Line: 3, Col: 6})
	x.AddEntity(Entity{ID: "p::I.M", Name: "M", Kind: "method", Package: "p", Virtual: true, Exported: true})
	x.AddEntity(Entity{ID: "p::I", Name: "I", Kind: "interface", Package: "p", Exported: true})
	x.AddEntity(Entity{ID: "p::T.M", Name: "M", Kind: "method", Package: "p", Exported: true})
	x.AddOccurrence(Occurrence{
		Entity: "p::I.M", File: "a.go", Line: 4, Col: 4, Package: "p",
		Parent: "p::main", Context: "p::main", Roles: index.RoleCall | index.RoleDynamic, Kind: "member",
		Relations: []Relation{{Kind: "called_by", Target: "p::main"}, {Kind: "received_by", Target: "p::I"}},
	})
	x.AddOverride(Override{Method: "p::T.M", Overridden: "p::I.M", Type: "p::T", Interface: "p::I"})
	x.AddSource("a.go", "p", "package p\n")
	x.SetStats(FunctionStats{FunctionID: "p::main", Complexity: 1, LOC: 3})
	x.Sort()
	x.ComputeStats()
	return x
}

func TestWriteDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xref.db")
	log := &testLog{}
	runID, err := WriteDB(path, sample(), WriteOptions{Validate: true, Meta: map[string]string{"root": "/src"}}, log)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	assert.Contains(t, log.lines, "  OK: zero relations to unknown entities")

	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	require.NoError(t, err)
	defer conn.Close()

	count := func(query string) int64 {
		t.Helper()
		var n int64
		err := sqlitex.ExecuteTransient(conn, query, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				n = stmt.ColumnInt64(0)
				return nil
			},
		})
		require.NoError(t, err)
		return n
	}

	assert.EqualValues(t, 5, count(`SELECT COUNT(*) FROM entities`))
	assert.EqualValues(t, 1, count(`SELECT COUNT(*) FROM occurrences`))
	assert.EqualValues(t, 2, count(`SELECT COUNT(*) FROM relations`))
	assert.EqualValues(t, 1, count(`SELECT COUNT(*) FROM calls WHERE caller = 'p::main' AND callee = 'p::I.M' AND dynamic`))
	assert.EqualValues(t, 1, count(`SELECT COUNT(*) FROM receivers WHERE receiver = 'p::I'`))
	assert.EqualValues(t, 1, count(`SELECT COUNT(*) FROM overrides WHERE overridden = 'p::I.M'`))
	assert.EqualValues(t, 1, count(`SELECT fan_out FROM function_stats WHERE function_id = 'p::main'`))
	assert.EqualValues(t, 1, count(`SELECT COUNT(*) FROM sources_fts WHERE sources_fts MATCH 'package'`))
	assert.EqualValues(t, 1, count(`SELECT COUNT(*) FROM meta WHERE key = 'root' AND value = '/src'`))

	var roleNames string
	err = sqlitex.ExecuteTransient(conn, `SELECT role_names FROM occurrences`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			roleNames = stmt.ColumnText(0)
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "call|dynamic", roleNames)

	var stored string
	err = sqlitex.ExecuteTransient(conn, `SELECT value FROM meta WHERE key = 'run_id'`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			stored = stmt.ColumnText(0)
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, runID, stored)
}

func TestWriteDB_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xref.db")
	_, err := WriteDB(path, sample(), WriteOptions{}, &testLog{})
	require.NoError(t, err)
	_, err = WriteDB(path, New(), WriteOptions{}, &testLog{})
	require.NoError(t, err)

	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	require.NoError(t, err)
	defer conn.Close()
	var n int64 = -1
	err = sqlitex.ExecuteTransient(conn, `SELECT COUNT(*) FROM entities`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			n = stmt.ColumnInt64(0)
			return nil
		},
	})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWriteDB_CallsViewFlagsDynamicOnly(t *testing.T) {
	x := New()
	x.AddEntity(Entity{ID: "p::main", Name: "main", Kind: "function", Package: "p"})
	x.AddEntity(Entity{ID: "p::f", Name: "f", Kind: "function", Package: "p"})
	x.AddEntity(Entity{ID: "p::I.M", Name: "M", Kind: "method", Package: "p", Virtual: true})
	calledBy := []Relation{{Kind: index.RelCalledBy.String(), Target: "p::main"}}
	for i, roles := range []index.Role{
		index.RoleCall,
		index.RoleCall | index.RoleImplicit,
		index.RoleCall | index.RoleDynamic,
	} {
		callee := "p::f"
		if roles.Has(index.RoleDynamic) {
			callee = "p::I.M"
		}
		x.AddOccurrence(Occurrence{
			Entity: callee, File: "a.go", Line: 4 + i, Col: 2, Package: "p",
			Parent: "p::main", Context: "p::main", Roles: roles, Kind: "ref",
			Relations: calledBy,
		})
	}
	x.Sort()

	path := filepath.Join(t.TempDir(), "xref.db")
	_, err := WriteDB(path, x, WriteOptions{}, &testLog{})
	require.NoError(t, err)

	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	require.NoError(t, err)
	defer conn.Close()

	dynamic := map[int64]bool{}
	err = sqlitex.ExecuteTransient(conn, `SELECT line, dynamic FROM calls WHERE caller = 'p::main'`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			dynamic[stmt.ColumnInt64(0)] = stmt.ColumnInt64(1) != 0
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{4: false, 5: false, 6: true}, dynamic)
}
