package fs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/proof/internal/adapters/fs"
)

func TestVerifier_VerifyOutputs(t *testing.T) {
	root := t.TempDir()
	mustCreateFile(t, root, "build/libmath.so")

	v := fs.NewVerifier()

	ok, err := v.VerifyOutputs(root, []string{"build/libmath.so"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.VerifyOutputs(root, []string{"build/libmath.so", "build/calc_test"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.VerifyOutputs(root, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}
