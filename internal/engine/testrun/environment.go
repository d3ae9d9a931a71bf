package testrun

import (
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/proof/internal/core/domain"
)

// ResolveEnvironment computes the environment every test binary runs with.
//
// The directory of each linked artifact in the graph is collected once, in
// the order tasks were declared, and prefixed to the library search
// variable(s) of platform. environ is not modified.
func ResolveEnvironment(graph *domain.Graph, platform domain.Platform, environ []string) domain.EnvSnapshot {
	var dirs []string
	for task := range graph.Tasks() {
		if task.Link.IsZero() {
			continue
		}
		dir := filepath.Dir(absolute(graph.Root(), task.Link.String()))
		if !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}

	vars := slices.Clone(environ)
	if len(dirs) == 0 {
		return domain.EnvSnapshot{Vars: vars}
	}

	sep := domain.PathListSeparator(platform)
	prefix := strings.Join(dirs, sep)
	// Windows environment names are case-insensitive and os.Environ keeps the
	// system spelling, typically "Path".
	match := func(a, b string) bool { return a == b }
	if platform == domain.PlatformWindows {
		match = strings.EqualFold
	}
	for _, key := range domain.LibraryPathVars(platform) {
		vars = prependVar(vars, key, prefix, sep, match)
	}

	return domain.EnvSnapshot{SearchPaths: dirs, Vars: vars}
}

// prependVar sets key to prefix+sep+previous, rewriting the existing entry
// in place under its original spelling or appending a new one.
func prependVar(vars []string, key, prefix, sep string, match func(a, b string) bool) []string {
	for i, kv := range vars {
		k, v, ok := strings.Cut(kv, "=")
		if ok && match(k, key) {
			vars[i] = k + "=" + prefix + sep + v
			return vars
		}
	}
	return append(vars, key+"="+prefix+sep)
}

func absolute(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}
