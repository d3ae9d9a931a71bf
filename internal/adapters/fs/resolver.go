package fs

import (
	"path/filepath"
	"slices"

	"go.trai.ch/proof/internal/core/domain"
	"go.trai.ch/proof/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.InputResolver = (*Resolver)(nil)

// Resolver implements the InputResolver interface using filepath.Glob.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ResolveInputs expands every pattern relative to root and returns the sorted,
// deduplicated matches. A pattern without matches is an error.
func (r *Resolver) ResolveInputs(inputs []string, root string) ([]string, error) {
	seen := make(map[string]struct{})

	for _, input := range inputs {
		pattern := input
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(root, input)
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to glob path"), "path", pattern)
		}
		if len(matches) == 0 {
			return nil, zerr.With(zerr.Wrap(domain.ErrInputNotFound, "resolve inputs"), "path", pattern)
		}

		for _, match := range matches {
			seen[match] = struct{}{}
		}
	}

	result := make([]string, 0, len(seen))
	for path := range seen {
		result = append(result, path)
	}
	slices.Sort(result)

	return result, nil
}
