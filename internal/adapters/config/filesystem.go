package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSystem is the read-only view of the disk the loader needs.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	// Glob returns files and directories matching pattern.
	Glob(pattern string) ([]string, error)
	IsDir(path string) (bool, error)
}

// OSFS reads from the real filesystem.
type OSFS struct{}

// NewOSFS creates a new OSFS instance.
func NewOSFS() *OSFS {
	return &OSFS{}
}

// Stat returns file info for the given path.
func (o *OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// ReadFile reads the entire file at path.
func (o *OSFS) ReadFile(path string) ([]byte, error) {
	// #nosec G304 -- configuration paths are discovered by the loader
	return os.ReadFile(path)
}

// Glob returns matches for the given pattern.
func (o *OSFS) Glob(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}

// IsDir checks if the path is a directory.
func (o *OSFS) IsDir(path string) (bool, error) {
	return isDir(o.Stat(path))
}

// MapFSAdapter serves an fs.FS (typically fstest.MapFS) as if it were
// mounted at Root.
type MapFSAdapter struct {
	FS   fs.FS
	Root string
}

// NewMapFSAdapter creates a new MapFSAdapter with the given root path and filesystem.
func NewMapFSAdapter(root string, fsys fs.FS) *MapFSAdapter {
	return &MapFSAdapter{FS: fsys, Root: filepath.Clean(root)}
}

// Stat returns file info for the given path.
func (m *MapFSAdapter) Stat(path string) (fs.FileInfo, error) {
	return fs.Stat(m.FS, m.toRelPath(path))
}

// ReadFile reads the entire file at path.
func (m *MapFSAdapter) ReadFile(path string) ([]byte, error) {
	return fs.ReadFile(m.FS, m.toRelPath(path))
}

// Glob returns absolute paths of entries matching pattern.
func (m *MapFSAdapter) Glob(pattern string) ([]string, error) {
	matches, err := fs.Glob(m.FS, filepath.ToSlash(m.toRelPath(pattern)))
	if err != nil {
		return nil, err
	}
	for i, match := range matches {
		matches[i] = filepath.Join(m.Root, filepath.FromSlash(match))
	}
	return matches, nil
}

// IsDir checks if the path is a directory.
func (m *MapFSAdapter) IsDir(path string) (bool, error) {
	return isDir(m.Stat(path))
}

// toRelPath strips Root from absPath. Paths outside Root are returned
// unchanged so that lookups fail with fs.ErrNotExist.
func (m *MapFSAdapter) toRelPath(absPath string) string {
	if !filepath.IsAbs(absPath) {
		return absPath
	}
	if absPath == m.Root {
		return "."
	}

	prefix := m.Root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	rel, ok := strings.CutPrefix(absPath, prefix)
	if !ok {
		return absPath
	}
	return filepath.ToSlash(rel)
}

func isDir(info fs.FileInfo, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
