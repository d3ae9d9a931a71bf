package cas_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/proof/internal/adapters/cas"
	"go.trai.ch/proof/internal/core/domain"
)

func TestStore_PutGet(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := cas.NewStore()

	info := domain.BuildInfo{
		TaskName:   "libmath",
		InputHash:  "0011223344556677",
		OutputHash: "8899aabbccddeeff",
		Timestamp:  time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Put(root, info))

	got, err := store.Get(root, "libmath")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, info, *got)

	entries, err := os.ReadDir(filepath.Join(root, domain.DefaultStorePath()))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestStore_GetMissing(t *testing.T) {
	t.Parallel()

	got, err := cas.NewStore().Get(t.TempDir(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_GetCorrupt(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := cas.NewStore()
	require.NoError(t, store.Put(root, domain.BuildInfo{TaskName: "calc"}))

	dir := filepath.Join(root, domain.DefaultStorePath())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, entries[0].Name()), []byte("{"), domain.PrivateFilePerm))

	_, err = store.Get(root, "calc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrStoreUnmarshalFailed.Error())
}

func TestStore_ConcurrentPut(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := cas.NewStore()

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Put(root, domain.BuildInfo{TaskName: "calc", InputHash: string(rune('a' + i))}))
		}()
	}
	wg.Wait()

	got, err := store.Get(root, "calc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.InputHash, 1)
}

func TestStore_Clear(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := cas.NewStore()
	require.NoError(t, store.Put(root, domain.BuildInfo{TaskName: "calc"}))

	require.NoError(t, store.Clear(root))

	got, err := store.Get(root, "calc")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoDirExists(t, filepath.Join(root, domain.DefaultStorePath()))
}
