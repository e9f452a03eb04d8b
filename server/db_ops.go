package server

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"xrefgen/index"
)

// ErrUnknownRole is returned for a role filter that names no role.
var ErrUnknownRole = errors.New("unknown role")

// Search returns the non-local entities whose name contains pattern.
func (db *DB) Search(pattern string, limit int) ([]Entity, error) {
	rows, err := db.Query(queryEntitySearch, "%"+pattern+"%", clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Entity{}
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Entity returns one entity by ID. It returns sql.ErrNoRows when there is
// none.
func (db *DB) Entity(id string) (Entity, error) {
	return scanEntity(db.QueryRow(queryEntityByID, id))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(s scanner) (Entity, error) {
	var e Entity
	var pkg, file sql.NullString
	var line sql.NullInt64
	if err := s.Scan(&e.ID, &e.Name, &e.Kind, &pkg, &file, &line, &e.Virtual); err != nil {
		return Entity{}, err
	}
	e.Package = nullStringJSON{pkg}
	e.File = nullStringJSON{file}
	e.Line = nullInt64JSON{line}
	return e, nil
}

// ParseRoles turns a role filter such as "read,write" or "call|dynamic"
// into a mask. The empty filter matches every occurrence.
func ParseRoles(filter string) (index.Role, error) {
	var mask index.Role
	for _, name := range strings.FieldsFunc(filter, func(r rune) bool { return r == ',' || r == '|' }) {
		r, ok := index.ParseRole(strings.TrimSpace(name))
		if !ok {
			return 0, fmt.Errorf("%w %q", ErrUnknownRole, name)
		}
		mask |= r
	}
	return mask, nil
}

// References returns the occurrences of entity carrying every role of mask,
// each with its relations.
func (db *DB) References(entity string, mask index.Role, limit int) ([]Reference, error) {
	rows, err := db.Query(queryReferences, entity, int(mask), int(mask), clampLimit(limit))
	if err != nil {
		return nil, err
	}
	var ids []int64
	out := []Reference{}
	for rows.Next() {
		var ref Reference
		var id int64
		var file, parent, dc sql.NullString
		if err := rows.Scan(&id, &ref.Entity, &file, &ref.Line, &ref.Col, &parent, &dc, &ref.Roles, &ref.RoleNames, &ref.Kind); err != nil {
			rows.Close()
			return nil, err
		}
		ref.File = nullStringJSON{file}
		ref.Parent = nullStringJSON{parent}
		ref.Context = nullStringJSON{dc}
		ref.Relations = []Relation{}
		ids = append(ids, id)
		out = append(out, ref)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The connection pool holds one connection, so relations are read after
	// the occurrence rows are closed.
	for i, id := range ids {
		rels, err := db.relations(id)
		if err != nil {
			return nil, err
		}
		out[i].Relations = rels
	}
	return out, nil
}

func (db *DB) relations(occurrence int64) ([]Relation, error) {
	rows, err := db.Query(queryRelationsOf, occurrence)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Relation{}
	for rows.Next() {
		var r Relation
		if err := rows.Scan(&r.Kind, &r.Target); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Callers returns the call sites of entity, each naming the calling
// function.
func (db *DB) Callers(entity string, limit int) ([]Call, error) {
	return db.calls(queryCallers, entity, limit)
}

// Callees returns the calls made by the function entity.
func (db *DB) Callees(entity string, limit int) ([]Call, error) {
	return db.calls(queryCallees, entity, limit)
}

func (db *DB) calls(query, entity string, limit int) ([]Call, error) {
	rows, err := db.Query(query, entity, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Call{}
	for rows.Next() {
		var c Call
		var name, kind, file sql.NullString
		if err := rows.Scan(&c.Function, &name, &kind, &file, &c.Line, &c.Col, &c.Dynamic); err != nil {
			return nil, err
		}
		c.Name = nullStringJSON{name}
		c.Kind = nullStringJSON{kind}
		c.File = nullStringJSON{file}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Receivers returns the dynamic calls of a method, or the dynamic calls
// dispatched through an interface.
func (db *DB) Receivers(entity string, limit int) ([]Receiver, error) {
	rows, err := db.Query(queryReceivers, entity, entity, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Receiver{}
	for rows.Next() {
		var r Receiver
		var file sql.NullString
		if err := rows.Scan(&r.Method, &r.Receiver, &file, &r.Line, &r.Col); err != nil {
			return nil, err
		}
		r.File = nullStringJSON{file}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Overrides returns the override pairs entity takes part in, as method,
// interface method, concrete type or interface.
func (db *DB) Overrides(entity string) ([]Override, error) {
	rows, err := db.Query(queryOverrides, entity, entity, entity, entity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Override{}
	for rows.Next() {
		var o Override
		var typ, iface sql.NullString
		if err := rows.Scan(&o.Method, &o.Overridden, &typ, &iface); err != nil {
			return nil, err
		}
		o.Type = nullStringJSON{typ}
		o.Interface = nullStringJSON{iface}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Stats returns the stats of one function. It returns sql.ErrNoRows when
// there are none.
func (db *DB) Stats(function string) (FunctionStats, error) {
	var s FunctionStats
	err := db.QueryRow(queryFunctionStats, function).Scan(
		&s.FunctionID, &s.Complexity, &s.LOC, &s.NumParams, &s.FanIn, &s.FanOut,
		&s.Refs, &s.Reads, &s.Writes, &s.Calls, &s.DynamicCalls, &s.Recursive)
	return s, err
}

// Source returns the content and package of a stored file.
func (db *DB) Source(file string) (content, pkg string, err error) {
	var p sql.NullString
	err = db.QueryRow(querySourceByFile, file).Scan(&content, &p)
	return content, p.String, err
}

// SearchSources runs a full-text query over the stored sources.
func (db *DB) SearchSources(query string, limit int) ([]SourceMatch, error) {
	rows, err := db.Query(querySourceSearch, query, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []SourceMatch{}
	for rows.Next() {
		var m SourceMatch
		var pkg sql.NullString
		if err := rows.Scan(&m.File, &pkg, &m.Snippet); err != nil {
			return nil, err
		}
		m.Package = nullStringJSON{pkg}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Meta returns the run metadata.
func (db *DB) Meta() (map[string]string, error) {
	rows, err := db.Query(queryMeta)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k string
		var v sql.NullString
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v.String
	}
	return out, rows.Err()
}
