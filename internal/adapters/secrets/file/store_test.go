package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/winspay-gate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePutGetDelete(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)
	ctx := context.Background()
	key := "supabase://abc.supabase.co/session"

	require.NoError(t, store.Put(ctx, key, `{"access_token":"a"}`))

	path := filepath.Join(root, "supabase", "abc.supabase.co", "session")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	value, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"access_token":"a"}`, value)

	require.NoError(t, store.Put(ctx, key, "second"))
	value, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "second", value)

	require.NoError(t, store.Delete(ctx, key))
	require.NoError(t, store.Delete(ctx, key))

	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStoreRejectsEscapingKeys(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())

	for _, key := range []string{"", "   ", "../outside", "a/../../b"} {
		err := store.Put(context.Background(), key, "x")
		assert.Error(t, err, key)
	}
}

func TestStoreHonoursCanceledContext(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Put(ctx, "k", "v"), context.Canceled)
	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Delete(ctx, "k"), context.Canceled)
}

func TestKeyPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "supabase/host/session", KeyPath("supabase://host/session"))
	assert.Equal(t, "plain", KeyPath(" /plain/ "))
}
