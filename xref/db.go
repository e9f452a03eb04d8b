package xref

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"xrefgen/index"
)

const batchSize = 50000

// Logger receives progress messages while the database is written.
type Logger interface {
	Log(format string, args ...any)
	Verbose(format string, args ...any)
}

// WriteOptions controls WriteDB.
type WriteOptions struct {
	Validate bool
	// Meta is stored in the meta table next to the generated run_id and
	// created_at entries.
	Meta map[string]string
}

// WriteDB writes x to a fresh SQLite database file at path. It returns the
// run ID recorded in the meta table.
func WriteDB(path string, x *XRef, opts WriteOptions, prog Logger) (string, error) {
	prog.Log("Writing SQLite to %s ...", path)

	_ = os.Remove(path) // ignore if doesn't exist

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return "", fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = conn.Close() }()

	for _, pragma := range []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = -64000",
		"PRAGMA journal_mode = WAL",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return "", fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := createTables(conn); err != nil {
		return "", fmt.Errorf("create tables: %w", err)
	}

	runID := uuid.NewString()
	meta := map[string]string{
		"run_id":     runID,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	maps.Copy(meta, opts.Meta)

	x.mu.Lock()
	defer x.mu.Unlock()

	// Bulk insert in a transaction
	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	for _, insert := range []func() error{
		func() error { return insertEntities(conn, x.Entities, prog) },
		func() error { return insertOccurrences(conn, x.Occurrences, prog) },
		func() error { return insertOverrides(conn, x.Overrides, prog) },
		func() error { return insertStats(conn, x.Stats, prog) },
		func() error { return insertSources(conn, x.Sources, prog) },
		func() error { return insertMeta(conn, meta) },
	} {
		if err = insert(); err != nil {
			endFn(&err)
			return "", err
		}
	}
	endFn(&err)
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	prog.Log("Creating indexes...")
	if err := createIndexes(conn); err != nil {
		return "", fmt.Errorf("create indexes: %w", err)
	}
	if err := createViews(conn); err != nil {
		return "", fmt.Errorf("create views: %w", err)
	}
	if err := createFTS(conn); err != nil {
		return "", fmt.Errorf("create fts: %w", err)
	}

	if opts.Validate {
		if err := runValidation(conn, prog); err != nil {
			return "", fmt.Errorf("validation: %w", err)
		}
	}

	prog.Log("Database written (run %s)", runID)
	return runID, nil
}

func createTables(conn *sqlite.Conn) error {
	ddl := `
CREATE TABLE entities (
    id TEXT PRIMARY KEY,
    key INTEGER NOT NULL,
    name TEXT NOT NULL,
    kind TEXT NOT NULL,
    package TEXT,
    file TEXT,
    line INTEGER,
    col INTEGER,
    exported INTEGER NOT NULL DEFAULT 0,
    virtual INTEGER NOT NULL DEFAULT 0,
    local INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE occurrences (
    id INTEGER PRIMARY KEY,
    entity TEXT NOT NULL,
    file TEXT,
    line INTEGER,
    col INTEGER,
    package TEXT,
    parent TEXT,
    context TEXT,
    roles INTEGER NOT NULL,
    role_names TEXT NOT NULL,
    kind TEXT NOT NULL
);

CREATE TABLE relations (
    occurrence INTEGER NOT NULL,
    kind TEXT NOT NULL,
    target TEXT NOT NULL
);

CREATE TABLE overrides (
    method TEXT NOT NULL,
    overridden TEXT NOT NULL,
    type TEXT,
    interface TEXT
);

CREATE TABLE function_stats (
    function_id TEXT PRIMARY KEY,
    complexity INTEGER,
    loc INTEGER,
    num_params INTEGER,
    fan_in INTEGER,
    fan_out INTEGER,
    refs INTEGER,
    reads INTEGER,
    writes INTEGER,
    calls INTEGER,
    dynamic_calls INTEGER,
    recursive INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE sources (
    file TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    package TEXT
);

CREATE TABLE meta (
    key TEXT PRIMARY KEY,
    value TEXT
);
`
	return sqlitex.ExecuteScript(conn, ddl, nil)
}

func createIndexes(conn *sqlite.Conn) error {
	indexes := `
CREATE INDEX idx_entities_name ON entities(name);
CREATE INDEX idx_entities_key ON entities(key);
CREATE INDEX idx_occurrences_entity ON occurrences(entity, roles);
CREATE INDEX idx_occurrences_file ON occurrences(file, line);
CREATE INDEX idx_occurrences_parent ON occurrences(parent);
CREATE INDEX idx_relations_occurrence ON relations(occurrence);
CREATE INDEX idx_relations_target ON relations(target, kind);
CREATE INDEX idx_overrides_method ON overrides(method);
CREATE INDEX idx_overrides_overridden ON overrides(overridden);
`
	return sqlitex.ExecuteScript(conn, indexes, nil)
}

// createViews builds the call and dispatch views the query server reads.
func createViews(conn *sqlite.Conn) error {
	views := fmt.Sprintf(`
CREATE VIEW calls AS
SELECT r.target AS caller, o.entity AS callee, o.file, o.line, o.col,
       (o.roles & %d) != 0 AS dynamic
FROM occurrences o
JOIN relations r ON r.occurrence = o.id AND r.kind = '%s';

CREATE VIEW receivers AS
SELECT o.entity AS method, r.target AS receiver, o.file, o.line, o.col
FROM occurrences o
JOIN relations r ON r.occurrence = o.id AND r.kind = '%s';
`, index.RoleDynamic, index.RelCalledBy, index.RelReceivedBy)
	return sqlitex.ExecuteScript(conn, views, nil)
}

// createFTS builds an FTS5 virtual table for full-text search on source code.
func createFTS(conn *sqlite.Conn) error {
	fts := `
CREATE VIRTUAL TABLE sources_fts USING fts5(file, content, package, content=sources, content_rowid=rowid);
INSERT INTO sources_fts(sources_fts) VALUES('rebuild');
`
	return sqlitex.ExecuteScript(conn, fts, nil)
}

func insertEntities(conn *sqlite.Conn, entities []Entity, prog Logger) error {
	stmt, err := conn.Prepare(`INSERT OR IGNORE INTO entities (id, key, name, kind, package, file, line, col, exported, virtual, local) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare entity insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for i, e := range entities {
		stmt.BindText(1, e.ID)
		stmt.BindInt64(2, e.Key)
		stmt.BindText(3, e.Name)
		stmt.BindText(4, e.Kind)
		bindTextOrNull(stmt, 5, e.Package)
		bindTextOrNull(stmt, 6, e.File)
		bindIntOrNull(stmt, 7, e.Line)
		bindIntOrNull(stmt, 8, e.Col)
		stmt.BindBool(9, e.Exported)
		stmt.BindBool(10, e.Virtual)
		stmt.BindBool(11, e.Local)

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert entity %s: %w", e.ID, err)
		}
		_ = stmt.Reset()

		if (i+1)%batchSize == 0 {
			prog.Verbose("  inserted %d/%d entities", i+1, len(entities))
		}
	}

	prog.Log("Inserted %d entities", len(entities))
	return nil
}

func insertOccurrences(conn *sqlite.Conn, occs []Occurrence, prog Logger) error {
	stmt, err := conn.Prepare(`INSERT INTO occurrences (id, entity, file, line, col, package, parent, context, roles, role_names, kind) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare occurrence insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	rel, err := conn.Prepare(`INSERT INTO relations (occurrence, kind, target) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare relation insert: %w", err)
	}
	defer func() { _ = rel.Finalize() }()

	var relCount int
	for i, o := range occs {
		id := int64(i + 1)
		stmt.BindInt64(1, id)
		stmt.BindText(2, o.Entity)
		bindTextOrNull(stmt, 3, o.File)
		bindIntOrNull(stmt, 4, o.Line)
		bindIntOrNull(stmt, 5, o.Col)
		bindTextOrNull(stmt, 6, o.Package)
		bindTextOrNull(stmt, 7, o.Parent)
		bindTextOrNull(stmt, 8, o.Context)
		stmt.BindInt64(9, int64(o.Roles))
		stmt.BindText(10, o.Roles.String())
		stmt.BindText(11, o.Kind)

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert occurrence of %s at %s:%d: %w", o.Entity, o.File, o.Line, err)
		}
		_ = stmt.Reset()

		for _, r := range o.Relations {
			rel.BindInt64(1, id)
			rel.BindText(2, r.Kind)
			rel.BindText(3, r.Target)
			if _, err := rel.Step(); err != nil {
				return fmt.Errorf("insert relation %s→%s: %w", o.Entity, r.Target, err)
			}
			_ = rel.Reset()
			relCount++
		}

		if (i+1)%batchSize == 0 {
			prog.Verbose("  inserted %d/%d occurrences", i+1, len(occs))
		}
	}

	prog.Log("Inserted %d occurrences, %d relations", len(occs), relCount)
	return nil
}

func insertOverrides(conn *sqlite.Conn, overrides []Override, prog Logger) error {
	stmt, err := conn.Prepare(`INSERT INTO overrides (method, overridden, type, interface) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare override insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, o := range overrides {
		stmt.BindText(1, o.Method)
		stmt.BindText(2, o.Overridden)
		bindTextOrNull(stmt, 3, o.Type)
		bindTextOrNull(stmt, 4, o.Interface)

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert override %s→%s: %w", o.Method, o.Overridden, err)
		}
		_ = stmt.Reset()
	}

	prog.Log("Inserted %d overrides", len(overrides))
	return nil
}

func insertStats(conn *sqlite.Conn, stats map[string]*FunctionStats, prog Logger) error {
	stmt, err := conn.Prepare(`INSERT OR IGNORE INTO function_stats (function_id, complexity, loc, num_params, fan_in, fan_out, refs, reads, writes, calls, dynamic_calls, recursive) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare stats insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, id := range slices.Sorted(maps.Keys(stats)) {
		s := stats[id]
		stmt.BindText(1, s.FunctionID)
		stmt.BindInt64(2, int64(s.Complexity))
		stmt.BindInt64(3, int64(s.LOC))
		stmt.BindInt64(4, int64(s.NumParams))
		stmt.BindInt64(5, int64(s.FanIn))
		stmt.BindInt64(6, int64(s.FanOut))
		stmt.BindInt64(7, int64(s.Refs))
		stmt.BindInt64(8, int64(s.Reads))
		stmt.BindInt64(9, int64(s.Writes))
		stmt.BindInt64(10, int64(s.Calls))
		stmt.BindInt64(11, int64(s.DynamicCalls))
		stmt.BindBool(12, s.Recursive)

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert stats %s: %w", s.FunctionID, err)
		}
		_ = stmt.Reset()
	}

	prog.Log("Inserted %d function stats", len(stats))
	return nil
}

func insertSources(conn *sqlite.Conn, sources map[string]Source, prog Logger) error {
	stmt, err := conn.Prepare(`INSERT OR IGNORE INTO sources (file, content, package) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare source insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, file := range slices.Sorted(maps.Keys(sources)) {
		src := sources[file]
		stmt.BindText(1, file)
		stmt.BindText(2, src.Content)
		bindTextOrNull(stmt, 3, src.Package)

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert source %s: %w", file, err)
		}
		_ = stmt.Reset()
	}

	prog.Log("Inserted %d source files", len(sources))
	return nil
}

func insertMeta(conn *sqlite.Conn, meta map[string]string) error {
	stmt, err := conn.Prepare(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare meta insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, k := range slices.Sorted(maps.Keys(meta)) {
		stmt.BindText(1, k)
		stmt.BindText(2, meta[k])
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert meta %s: %w", k, err)
		}
		_ = stmt.Reset()
	}
	return nil
}

func runValidation(conn *sqlite.Conn, prog Logger) error {
	prog.Log("Running validation queries...")

	// Occurrences and relations must point at recorded entities.
	checks := []struct {
		what, query string
	}{
		{"occurrences of unknown entities", `SELECT COUNT(*) FROM occurrences WHERE entity NOT IN (SELECT id FROM entities)`},
		{"relations to unknown entities", `SELECT COUNT(*) FROM relations WHERE target NOT IN (SELECT id FROM entities)`},
		{"write-only targets with a call role", `SELECT COUNT(*) FROM occurrences WHERE (roles & 2) != 0 AND (roles & 4) != 0`},
	}
	for _, c := range checks {
		var n int64
		if err := sqlitex.ExecuteTransient(conn, c.query, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				n = stmt.ColumnInt64(0)
				return nil
			},
		}); err != nil {
			return err
		}
		if n > 0 {
			prog.Log("  WARNING: %d %s", n, c.what)
		} else {
			prog.Log("  OK: zero %s", c.what)
		}
	}

	if err := sqlitex.ExecuteTransient(conn,
		`SELECT role_names, COUNT(*) FROM occurrences GROUP BY role_names ORDER BY COUNT(*) DESC`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				prog.Log("  occurrences: %s = %d", stmt.ColumnText(0), stmt.ColumnInt64(1))
				return nil
			},
		}); err != nil {
		return err
	}

	return sqlitex.ExecuteTransient(conn,
		`SELECT kind, COUNT(*) FROM entities GROUP BY kind ORDER BY COUNT(*) DESC`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				prog.Log("  entities: %s = %d", stmt.ColumnText(0), stmt.ColumnInt64(1))
				return nil
			},
		})
}

// Helper functions for nullable bindings.

func bindTextOrNull(stmt *sqlite.Stmt, param int, val string) {
	if val == "" {
		stmt.BindNull(param)
	} else {
		stmt.BindText(param, val)
	}
}

func bindIntOrNull(stmt *sqlite.Stmt, param, val int) {
	if val == 0 {
		stmt.BindNull(param)
	} else {
		stmt.BindInt64(param, int64(val))
	}
}
