package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInstance(id, service string) Instance {
	return Instance{
		ID:          id,
		Service:     service,
		ComposeFile: "/tmp/.stackup-docker-compose.yml",
		Project:     "demo",
		Ports:       []Port{{Host: "8080", Container: "80"}},
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stackup-instances.json")

	store := NewStore(path)
	require.NoError(t, store.Load())
	store.Record(testInstance("cid-1", "web"))
	store.Record(testInstance("cid-2", "db"))
	require.NoError(t, store.Save())

	// A fresh store sees what the first one persisted.
	reloaded := NewStore(path)
	require.NoError(t, reloaded.Load())

	instances := reloaded.Instances()
	require.Len(t, instances, 2)
	assert.Equal(t, "cid-1", instances[0].ID)
	assert.Equal(t, "web", instances[0].Service)
	assert.Equal(t, []Port{{Host: "8080", Container: "80"}}, instances[0].Ports)
}

func TestStore_Load(t *testing.T) {
	t.Run("missing file is empty state", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "absent.json"))
		require.NoError(t, store.Load())
		assert.Empty(t, store.Instances())
	})

	t.Run("corrupt file degrades to empty state", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "corrupt.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

		store := NewStore(path)
		err := store.Load()
		require.Error(t, err)
		assert.Empty(t, store.Instances())

		// The store stays usable after the failed load.
		store.Record(testInstance("cid-1", "web"))
		assert.Len(t, store.Instances(), 1)
	})

	t.Run("loads only once", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")

		writer := NewStore(path)
		require.NoError(t, writer.Load())
		writer.Record(testInstance("cid-1", "web"))
		require.NoError(t, writer.Save())

		reader := NewStore(path)
		require.NoError(t, reader.Load())
		require.Len(t, reader.Instances(), 1)

		// Changing the file after the first load must not show up.
		require.NoError(t, os.Remove(path))
		require.NoError(t, reader.Load())
		assert.Len(t, reader.Instances(), 1)
	})
}

func TestStore_Save_EmptyRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	store := NewStore(path)
	store.Record(testInstance("cid-1", "web"))
	require.NoError(t, store.Save())
	_, err := os.Stat(path)
	require.NoError(t, err)

	store.Remove("cid-1")
	require.NoError(t, store.Save())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Saving empty twice is fine even with no file present.
	require.NoError(t, store.Save())
}

func TestStore_Remove(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))
	store.Record(testInstance("cid-1", "web"))
	store.Record(testInstance("cid-2", "db"))
	store.Record(testInstance("cid-3", "web"))

	store.Remove("cid-1", "cid-3", "unknown")

	instances := store.Instances()
	require.Len(t, instances, 1)
	assert.Equal(t, "cid-2", instances[0].ID)
}

func TestStore_InstanceIDsForService(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))
	store.Record(testInstance("cid-1", "MatchingService"))
	store.Record(testInstance("cid-2", "other"))
	store.Record(testInstance("cid-3", "matchingservice"))

	assert.Equal(t, []string{"cid-1", "cid-3"}, store.InstanceIDsForService("MATCHINGSERVICE"))
	assert.Empty(t, store.InstanceIDsForService("nomatchingservice"))
	assert.Equal(t, []string{"cid-1", "cid-2", "cid-3"}, store.AllInstanceIDs())
}

func TestStore_MatchingInstance(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))
	store.Record(testInstance("cid-1", "web"))
	store.Record(testInstance("cid-2", "db"))

	t.Run("returns first recorded match", func(t *testing.T) {
		inst, ok := store.MatchingInstance([]string{"cid-2", "cid-1"})
		require.True(t, ok)
		assert.Equal(t, "cid-1", inst.ID)
	})

	t.Run("no candidates", func(t *testing.T) {
		_, ok := store.MatchingInstance(nil)
		assert.False(t, ok)
	})

	t.Run("no overlap", func(t *testing.T) {
		_, ok := store.MatchingInstance([]string{"cid-9"})
		assert.False(t, ok)
	})
}
