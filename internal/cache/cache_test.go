package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKey_StableAcrossConstructionOrder(t *testing.T) {
	a := map[string]any{"video": "/in.mp4", "threshold": 0.4, "flags": map[string]any{"x": true, "y": false}}
	b := map[string]any{"flags": map[string]any{"y": false, "x": true}, "threshold": 0.4, "video": "/in.mp4"}

	ka, err := Key("detect_scenes", "n1", a)
	require.NoError(t, err)
	kb, err := Key("detect_scenes", "n1", b)
	require.NoError(t, err)
	require.Equal(t, ka, kb)
}

func TestKey_SensitiveToTypeIDAndInputs(t *testing.T) {
	base := map[string]any{"video": "/in.mp4"}
	k1, _ := Key("detect_scenes", "n1", base)

	k2, _ := Key("chunk_video", "n1", base)
	require.NotEqual(t, k1, k2, "type must affect the fingerprint")

	k3, _ := Key("detect_scenes", "n2", base)
	require.NotEqual(t, k1, k3, "node id must affect the fingerprint")

	k4, _ := Key("detect_scenes", "n1", map[string]any{"video": "/other.mp4"})
	require.NotEqual(t, k1, k4, "inputs must affect the fingerprint")
}

func TestKey_UnmarshalableInputs(t *testing.T) {
	_, err := Key("t", "n", map[string]any{"bad": make(chan int)})
	require.Error(t, err)
}

func TestFileStore_RoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	key, err := Key("extract_audio", "n1", map[string]any{"video_directory": "/in"})
	require.NoError(t, err)

	_, ok := store.Get(key)
	require.False(t, ok)

	output := map[string]any{"audio_directory": "/in/audio"}
	require.NoError(t, store.Put(key, output))

	entry, ok := store.Get(key)
	require.True(t, ok)
	require.Equal(t, key, entry.Key)
	require.Equal(t, "/in/audio", entry.Output["audio_directory"])
	require.False(t, entry.CreatedAt.IsZero())
}

func TestFileStore_CorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	key, _ := Key("t", "n", nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, key+".json"), []byte("{not json"), 0644))

	_, ok := store.Get(key)
	require.False(t, ok)
}

func TestFileStore_Clear(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	key, _ := Key("t", "n", nil)
	require.NoError(t, store.Put(key, map[string]any{"v": 1.0}))
	require.NoError(t, store.Clear())

	_, ok := store.Get(key)
	require.False(t, ok)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	key, _ := Key("t", "n", map[string]any{"v": "x"})
	require.NoError(t, store.Put(key, map[string]any{"out": "y"}))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	entry, ok := reopened.Get(key)
	require.True(t, ok)
	require.Equal(t, "y", entry.Output["out"])
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	key, _ := Key("t", "n", nil)

	_, ok := store.Get(key)
	require.False(t, ok)

	require.NoError(t, store.Put(key, map[string]any{"v": "x"}))
	entry, ok := store.Get(key)
	require.True(t, ok)
	require.Equal(t, "x", entry.Output["v"])
	require.Equal(t, 1, store.Len())

	require.NoError(t, store.Clear())
	require.Equal(t, 0, store.Len())
}
