package fs

import (
	"os"
	"path/filepath"

	"go.trai.ch/proof/internal/core/domain"
	"go.trai.ch/proof/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Verifier = (*Verifier)(nil)

// Verifier checks that declared outputs exist on disk.
type Verifier struct{}

// NewVerifier creates a new Verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// VerifyOutputs reports whether every output exists below root.
func (v *Verifier) VerifyOutputs(root string, outputs []string) (bool, error) {
	for _, output := range outputs {
		path := output
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, output)
		}
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", path)
		}
	}
	return true, nil
}
