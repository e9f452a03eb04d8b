package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// Open opens an existing cross-reference database and checks that it is
// reachable.
func Open(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// nullStringJSON marshals as string or null.
type nullStringJSON struct{ sql.NullString }

func (n nullStringJSON) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.String)
}

func (n *nullStringJSON) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		n.Valid = false
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.String, n.Valid = s, true
	return nil
}

// nullInt64JSON marshals as number or null.
type nullInt64JSON struct{ sql.NullInt64 }

func (n nullInt64JSON) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Int64)
}

func (n *nullInt64JSON) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		n.Valid = false
		return nil
	}
	var i int64
	if err := json.Unmarshal(data, &i); err != nil {
		return err
	}
	n.Int64, n.Valid = i, true
	return nil
}

// DB wraps *sql.DB with the cross-reference queries.
type DB struct {
	*sql.DB
}

// NewDB returns a DB wrapper.
func NewDB(db *sql.DB) *DB {
	return &DB{DB: db}
}

// Entity is a declaration in API responses.
type Entity struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Kind    string         `json:"kind"`
	Package nullStringJSON `json:"package"`
	File    nullStringJSON `json:"file"`
	Line    nullInt64JSON  `json:"line"`
	Virtual bool           `json:"virtual,omitempty"`
}

// Relation links a reference to a second entity.
type Relation struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
}

// Reference is one occurrence of an entity.
type Reference struct {
	Entity    string         `json:"entity"`
	File      nullStringJSON `json:"file"`
	Line      int            `json:"line"`
	Col       int            `json:"col"`
	Parent    nullStringJSON `json:"parent"`
	Context   nullStringJSON `json:"context"`
	Roles     int            `json:"roles"`
	RoleNames string         `json:"role_names"`
	Kind      string         `json:"kind"`
	Relations []Relation     `json:"relations"`
}

// Call is one call site seen from either end.
type Call struct {
	Function string         `json:"function"`
	Name     nullStringJSON `json:"name"`
	Kind     nullStringJSON `json:"kind"`
	File     nullStringJSON `json:"file"`
	Line     int            `json:"line"`
	Col      int            `json:"col"`
	Dynamic  bool           `json:"dynamic"`
}

// Receiver is a dynamically dispatched call and the interface it goes
// through.
type Receiver struct {
	Method   string         `json:"method"`
	Receiver string         `json:"receiver"`
	File     nullStringJSON `json:"file"`
	Line     int            `json:"line"`
	Col      int            `json:"col"`
}

// Override pairs a method with the interface method it satisfies.
type Override struct {
	Method     string         `json:"method"`
	Overridden string         `json:"overridden"`
	Type       nullStringJSON `json:"type"`
	Interface  nullStringJSON `json:"interface"`
}

// FunctionStats is one row of function_stats.
type FunctionStats struct {
	FunctionID   string `json:"function_id"`
	Complexity   int    `json:"complexity"`
	LOC          int    `json:"loc"`
	NumParams    int    `json:"num_params"`
	FanIn        int    `json:"fan_in"`
	FanOut       int    `json:"fan_out"`
	Refs         int    `json:"refs"`
	Reads        int    `json:"reads"`
	Writes       int    `json:"writes"`
	Calls        int    `json:"calls"`
	DynamicCalls int    `json:"dynamic_calls"`
	Recursive    bool   `json:"recursive"`
}

// SourceMatch is a full-text hit in the stored sources.
type SourceMatch struct {
	File    string         `json:"file"`
	Package nullStringJSON `json:"package"`
	Snippet string         `json:"snippet"`
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return min(limit, maxLimit)
}
