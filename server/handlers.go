package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

// required returns the query parameter name, or writes 400 and returns "".
func required(w http.ResponseWriter, r *http.Request, name string) string {
	v := r.URL.Query().Get(name)
	if v == "" {
		http.Error(w, "missing query parameter "+name, http.StatusBadRequest)
	}
	return v
}

func (a *App) limit(r *http.Request) int {
	s := r.URL.Query().Get("limit")
	n, err := strconv.Atoi(s)
	if s != "" && err != nil {
		a.log.Debug("invalid limit, using default", "path", r.URL.Path, "limit", s)
	}
	return n
}

func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	a.log.Error("query failed", "path", r.URL.Path, "err", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (a *App) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := required(w, r, "q")
	if q == "" {
		return
	}
	entities, err := a.db.Search(q, a.limit(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, entities)
}

func (a *App) handleEntity(w http.ResponseWriter, r *http.Request) {
	id := required(w, r, "id")
	if id == "" {
		return
	}
	e, err := a.db.Entity(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, e)
}

func (a *App) handleReferences(w http.ResponseWriter, r *http.Request) {
	entity := required(w, r, "entity")
	if entity == "" {
		return
	}
	mask, err := ParseRoles(r.URL.Query().Get("role"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	refs, err := a.db.References(entity, mask, a.limit(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, refs)
}

func (a *App) handleCallers(w http.ResponseWriter, r *http.Request) {
	entity := required(w, r, "entity")
	if entity == "" {
		return
	}
	calls, err := a.db.Callers(entity, a.limit(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, calls)
}

func (a *App) handleCallees(w http.ResponseWriter, r *http.Request) {
	entity := required(w, r, "entity")
	if entity == "" {
		return
	}
	calls, err := a.db.Callees(entity, a.limit(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, calls)
}

func (a *App) handleReceivers(w http.ResponseWriter, r *http.Request) {
	entity := required(w, r, "entity")
	if entity == "" {
		return
	}
	recv, err := a.db.Receivers(entity, a.limit(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, recv)
}

func (a *App) handleOverrides(w http.ResponseWriter, r *http.Request) {
	entity := required(w, r, "entity")
	if entity == "" {
		return
	}
	list, err := a.db.Overrides(entity)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, list)
}

func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	fn := required(w, r, "function")
	if fn == "" {
		return
	}
	s, err := a.db.Stats(fn)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, s)
}

func (a *App) handleSource(w http.ResponseWriter, r *http.Request) {
	file := required(w, r, "file")
	if file == "" {
		return
	}
	content, pkg, err := a.db.Source(file)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"file": file, "package": pkg, "content": content})
}

func (a *App) handleSourceSearch(w http.ResponseWriter, r *http.Request) {
	q := required(w, r, "q")
	if q == "" {
		return
	}
	matches, err := a.db.SearchSources(q, a.limit(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, matches)
}

func (a *App) handleMeta(w http.ResponseWriter, r *http.Request) {
	meta, err := a.db.Meta()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, meta)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
