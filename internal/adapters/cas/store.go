// Package cas implements the build info store: one JSON record per task,
// addressed by the SHA-256 of the task name.
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/proof/internal/core/domain"
	"go.trai.ch/proof/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.BuildInfoStore = (*Store)(nil)

// Store implements ports.BuildInfoStore below <root>/.proof/store.
type Store struct{}

// NewStore creates a new Store.
func NewStore() *Store {
	return &Store{}
}

// Get retrieves the build info for a given task name.
func (s *Store) Get(root, taskName string) (*domain.BuildInfo, error) {
	filename := recordPath(root, taskName)
	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "task", taskName)
	}

	var info domain.BuildInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error()), "task", taskName)
	}

	return &info, nil
}

// Put stores the build info. The record is written to a temporary file and
// renamed into place so a concurrent Get never sees a partial record.
func (s *Store) Put(root string, info domain.BuildInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
	}

	filename := recordPath(root, info.TaskName)
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreCreateFailed.Error()), "dir", dir)
	}

	tmp, err := os.CreateTemp(dir, ".record-*")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := os.Chmod(tmp.Name(), domain.FilePerm); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "task", info.TaskName)
	}

	return nil
}

// Clear removes every record below root.
func (s *Store) Clear(root string) error {
	if err := os.RemoveAll(filepath.Join(root, domain.DefaultStorePath())); err != nil {
		return zerr.Wrap(err, domain.ErrStoreRemoveFailed.Error())
	}
	return nil
}

func recordPath(root, taskName string) string {
	sum := sha256.Sum256([]byte(taskName))
	return filepath.Join(root, domain.DefaultStorePath(), hex.EncodeToString(sum[:])+".json")
}
