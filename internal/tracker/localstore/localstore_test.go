package localstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, opts ...Option) Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "tracker.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetSet(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.Get("affiliate_tracked_1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set("affiliate_tracked_1", []byte(`{"ref":"anna"}`)))
	value, ok, err := store.Get("affiliate_tracked_1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"ref":"anna"}`, string(value))

	require.NoError(t, store.Delete("affiliate_tracked_1"))
	_, ok, err = store.Get("affiliate_tracked_1")
	require.NoError(t, err)
	require.False(t, ok)

	require.ErrorIs(t, store.Set("", nil), ErrEmptyKey)
}

func TestCookieExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := openTestStore(t, WithClock(func() time.Time { return now }))

	require.NoError(t, store.SetCookie("affiliate_ref", "anna", 30*24*time.Hour))

	now = now.Add(29 * 24 * time.Hour)
	value, ok, err := store.GetCookie("affiliate_ref")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "anna", value)

	now = now.Add(2 * 24 * time.Hour)
	value, ok, err = store.GetCookie("affiliate_ref")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, value)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Set("k", []byte("v")))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
	value, ok, err := store.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", string(value))
}
