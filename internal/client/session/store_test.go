package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threatpulse/securesoc/internal/model"
)

func testBlob() Persisted {
	return Persisted{
		Token:     "tok-1",
		ExpiresAt: time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		User: model.Identity{
			ID:       "acc-1",
			Email:    "analyst@co.test",
			Name:     "Ana",
			Role:     "analyst",
			IsActive: true,
		},
	}
}

func TestFileStore_LoadMissing(t *testing.T) {
	t.Parallel()

	s := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	_, ok, err := s.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_SaveLoadClear(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	s := NewFileStore(path)

	want := testBlob()
	require.NoError(t, s.Save(want))

	got, ok, err := s.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Token, got.Token)
	assert.Equal(t, want.User, got.User)
	assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.Clear())
	_, ok, err = s.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	// Clearing again is a no-op.
	require.NoError(t, s.Clear())
}

func TestFileStore_CorruptBlobTreatedAsAbsent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := NewFileStore(path)
	_, ok, err := s.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	// A save over the corrupt file recovers the store.
	require.NoError(t, s.Save(testBlob()))
	_, ok, err = s.Load()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStore_WatchSeesOtherWriter(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	reader := NewFileStore(path)
	writer := NewFileStore(path)

	fired := make(chan struct{}, 4)
	stop, err := reader.Watch(func() { fired <- struct{}{} })
	require.NoError(t, err)
	defer stop()

	require.NoError(t, writer.Save(testBlob()))
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not observe the save")
	}

	require.NoError(t, writer.Clear())
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not observe the clear")
	}
}

func TestManagerAdoptsCrossProcessSignOut(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)
	require.NoError(t, store.Save(testBlob()))

	api := newFakeAPI()
	api.me = func(string) (model.Identity, error) { return testBlob().User, nil }
	m := NewManager(api, store)
	require.NoError(t, m.RestoreSession(context.Background()))
	require.Equal(t, Authenticated, m.Snapshot().State)

	stop, err := m.WatchStore()
	require.NoError(t, err)
	defer stop()

	// Another process of the same user signs out.
	other := NewFileStore(path)
	require.NoError(t, other.Clear())

	require.Eventually(t, func() bool {
		return m.Snapshot().State == Unauthenticated
	}, 3*time.Second, 20*time.Millisecond)
}
