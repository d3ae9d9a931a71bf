package fs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/proof/internal/core/domain"
	"go.trai.ch/proof/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// Hasher fingerprints task definitions and files with xxhash.
type Hasher struct {
	walker *Walker
}

// NewHasher creates a new Hasher.
func NewHasher(walker *Walker) *Hasher {
	return &Hasher{walker: walker}
}

// ComputeFileHash computes the XXHash of a file's content.
func (h *Hasher) ComputeFileHash(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	digest := xxhash.New()
	if _, err := io.Copy(digest, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", path)
	}

	return digest.Sum64(), nil
}

// ComputeInputHash combines the task definition, the environment and the
// contents of the resolved input files into one hex digest.
func (h *Hasher) ComputeInputHash(task *domain.Task, env map[string]string, inputs []string) (string, error) {
	digest := xxhash.New()

	writeTaskDefinition(digest, task)
	writeEnvironment(digest, env)

	for _, path := range inputs {
		if err := h.hashPath(path, digest); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("%016x", digest.Sum64()), nil
}

// ComputeOutputHash hashes the contents of outputs, relative to root.
// A missing output is an error so callers treat it as a cache miss.
func (h *Hasher) ComputeOutputHash(outputs []string, root string) (string, error) {
	sorted := slices.Clone(outputs)
	slices.Sort(sorted)

	digest := xxhash.New()
	for _, output := range sorted {
		path := output
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, output)
		}
		if err := h.hashPath(path, digest); err != nil {
			return "", zerr.Wrap(err, domain.ErrOutputHashComputationFailed.Error())
		}
	}

	return fmt.Sprintf("%016x", digest.Sum64()), nil
}

// writeTaskDefinition feeds every field that changes what a task does.
func writeTaskDefinition(digest *xxhash.Digest, task *domain.Task) {
	field := func(values ...string) {
		for _, v := range values {
			_, _ = digest.WriteString(v)
			_, _ = digest.Write([]byte{0})
		}
		_, _ = digest.Write([]byte{0})
	}
	interned := func(values []domain.InternedString) []string {
		out := make([]string, len(values))
		for i, v := range values {
			out[i] = v.String()
		}
		return out
	}

	field(task.Name.String())
	field(task.Command...)
	field(interned(task.Inputs)...)
	field(interned(task.Outputs)...)
	field(interned(task.Dependencies)...)
	field(task.WorkingDir.String(), task.Link.String())
}

// writeEnvironment feeds env sorted by key.
func writeEnvironment(digest *xxhash.Digest, env map[string]string) {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		_, _ = digest.WriteString(k)
		_, _ = digest.Write([]byte{'='})
		_, _ = digest.WriteString(env[k])
		_, _ = digest.Write([]byte{0})
	}
	_, _ = digest.Write([]byte{0})
}

func (h *Hasher) hashPath(path string, digest io.Writer) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return zerr.With(zerr.Wrap(domain.ErrInputNotFound, "hash path"), "path", path)
		}
		return zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", path)
	}

	if !info.IsDir() {
		return h.hashFile(path, digest)
	}
	for file := range h.walker.WalkFiles(path, nil) {
		if err := h.hashFile(file, digest); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hasher) hashFile(path string, digest io.Writer) error {
	_, _ = digest.Write([]byte(path))
	_, _ = digest.Write([]byte{0})

	sum, err := h.ComputeFileHash(path)
	if err != nil {
		return err
	}

	if err := binary.Write(digest, binary.LittleEndian, sum); err != nil {
		return zerr.Wrap(err, domain.ErrWriteHashFailed.Error())
	}
	return nil
}
