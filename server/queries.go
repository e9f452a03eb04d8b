package server

// SQL against the schema written by xref.WriteDB.

const queryEntitySearch = `
SELECT id, name, kind, package, file, line, virtual
FROM entities
WHERE name LIKE ? AND local = 0
ORDER BY kind, name
LIMIT ?
`

const queryEntityByID = `
SELECT id, name, kind, package, file, line, virtual
FROM entities WHERE id = ?
`

// queryReferences selects the occurrences of an entity whose roles include
// every bit of the mask.
const queryReferences = `
SELECT id, entity, file, line, col, parent, context, roles, role_names, kind
FROM occurrences
WHERE entity = ? AND (roles & ?) = ?
ORDER BY file, line, col
LIMIT ?
`

const queryRelationsOf = `SELECT kind, target FROM relations WHERE occurrence = ? ORDER BY rowid`

const queryCallers = `
SELECT c.caller, e.name, e.kind, c.file, c.line, c.col, c.dynamic
FROM calls c LEFT JOIN entities e ON e.id = c.caller
WHERE c.callee = ?
ORDER BY c.file, c.line, c.col
LIMIT ?
`

const queryCallees = `
SELECT c.callee, e.name, e.kind, c.file, c.line, c.col, c.dynamic
FROM calls c LEFT JOIN entities e ON e.id = c.callee
WHERE c.caller = ?
ORDER BY c.file, c.line, c.col
LIMIT ?
`

const queryReceivers = `
SELECT method, receiver, file, line, col
FROM receivers
WHERE method = ? OR receiver = ?
ORDER BY file, line, col
LIMIT ?
`

const queryOverrides = `
SELECT method, overridden, type, interface
FROM overrides
WHERE method = ? OR overridden = ? OR type = ? OR interface = ?
ORDER BY method, overridden
`

const queryFunctionStats = `
SELECT function_id, COALESCE(complexity, 0), COALESCE(loc, 0), COALESCE(num_params, 0),
  COALESCE(fan_in, 0), COALESCE(fan_out, 0), COALESCE(refs, 0), COALESCE(reads, 0),
  COALESCE(writes, 0), COALESCE(calls, 0), COALESCE(dynamic_calls, 0), recursive
FROM function_stats WHERE function_id = ?
`

const querySourceByFile = `SELECT content, package FROM sources WHERE file = ?`

const querySourceSearch = `
SELECT file, package, snippet(sources_fts, 1, '[', ']', '...', 12)
FROM sources_fts WHERE sources_fts MATCH ?
ORDER BY rank LIMIT ?
`

const queryMeta = `SELECT key, value FROM meta ORDER BY key`
