package shell

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEnvironment(t *testing.T) {
	sep := string(os.PathListSeparator)

	tests := []struct {
		name     string
		sysEnv   []string
		extraEnv []string
		taskEnv  map[string]string
		expected []string
	}{
		{
			name:     "allow-listed system variables pass",
			sysEnv:   []string{"USER=dev", "PATH=/bin", "HOME=/home/dev", "TMPDIR=/tmp"},
			expected: []string{"USER=dev", "PATH=/bin", "HOME=/home/dev", "TMPDIR=/tmp"},
		},
		{
			name:     "other system variables are dropped",
			sysEnv:   []string{"USER=dev", "SSH_AUTH_SOCK=/tmp/ssh", "LD_LIBRARY_PATH=/opt/lib", "BROKEN"},
			expected: []string{"USER=dev"},
		},
		{
			name:     "extra variables are added",
			sysEnv:   []string{"PATH=/bin"},
			extraEnv: []string{"CC=clang"},
			expected: []string{"PATH=/bin", "CC=clang"},
		},
		{
			name:     "extra PATH is prepended",
			sysEnv:   []string{"PATH=/bin"},
			extraEnv: []string{"PATH=/opt/toolchain/bin"},
			expected: []string{"PATH=/opt/toolchain/bin" + sep + "/bin"},
		},
		{
			name:     "extra PATH without system PATH",
			extraEnv: []string{"PATH=/opt/toolchain/bin"},
			expected: []string{"PATH=/opt/toolchain/bin"},
		},
		{
			name:     "task variables win",
			sysEnv:   []string{"USER=dev", "PATH=/bin"},
			extraEnv: []string{"PATH=/opt/bin"},
			taskEnv:  map[string]string{"USER": "builder", "PATH": "/custom/bin"},
			expected: []string{"USER=builder", "PATH=/custom/bin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveEnvironment(tt.sysEnv, tt.extraEnv, tt.taskEnv)

			sort.Strings(got)
			sort.Strings(tt.expected)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEnvValue_LastWins(t *testing.T) {
	env := []string{"PATH=/a", "HOME=/h", "PATH=/b"}
	assert.Equal(t, "/b", envValue(env, "PATH"))
	assert.Empty(t, envValue(env, "MISSING"))
}

func TestLookPath(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, "calc_test")
	//nolint:gosec // Test requires executable file
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.txt"), []byte("x"), 0o600))

	got, err := lookPath("calc_test", []string{"PATH=/nonexistent" + string(os.PathListSeparator) + dir})
	require.NoError(t, err)
	assert.Equal(t, tool, got)

	_, err = lookPath("data.txt", []string{"PATH=" + dir})
	require.Error(t, err, "non-executable files are skipped")

	_, err = lookPath("calc_test", []string{"USER=dev"})
	require.Error(t, err, "no PATH in environment")

	_, err = lookPath("nonexistent", []string{"PATH=:" + dir})
	require.Error(t, err)
}

func TestFindExecutable(t *testing.T) {
	require.Error(t, findExecutable("/nonexistent/file"))
	require.Error(t, findExecutable(t.TempDir()))
}

func TestIsPathLike(t *testing.T) {
	assert.True(t, isPathLike("/usr/bin/cc"))
	assert.True(t, isPathLike("build/calc_test"))
	assert.True(t, isPathLike("./app2"))
	assert.False(t, isPathLike("valgrind"))
}
