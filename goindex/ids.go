package goindex

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// PkgID returns the entity ID of a package.
func PkgID(relPkg string) string {
	return "pkg::" + relPkg
}

// GlobalID returns the ID of a package-level declaration. recv is the
// receiver or owning type name, empty for plain functions, variables,
// constants and types.
func GlobalID(pkg, recv, name string) string {
	if recv != "" {
		return fmt.Sprintf("%s::%s.%s", pkg, recv, name)
	}
	return fmt.Sprintf("%s::%s", pkg, name)
}

// LocalID returns the ID of a declaration that has no package-level name:
// locals, parameters, fields of unnamed structs and init functions.
func LocalID(pkg, name, file string, line, col int) string {
	return fmt.Sprintf("%s::%s@%s:%d:%d", pkg, name, file, line, col)
}

// Key returns the 64-bit key stored next to an entity ID.
func Key(id string) int64 {
	return int64(xxhash.Sum64String(id))
}

// BaseName extracts the filename without directory from a path.
func BaseName(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}
