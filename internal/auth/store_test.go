package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashalaginvimeo/AS-test/internal/llm"
	"github.com/ashalaginvimeo/AS-test/internal/testutil"
)

func writeKeyFile(t *testing.T, dir, body string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, storeFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), perm))
	return path
}

func TestNewStore(t *testing.T) {
	t.Run("creates data directory", func(t *testing.T) {
		dir := filepath.Join(testutil.TempDir(t), "nested", ".copilot")

		store, err := NewStore(dir)
		require.NoError(t, err)
		assert.Empty(t, store.Providers())

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("missing file is an empty store", func(t *testing.T) {
		store, err := NewStore(testutil.TempDir(t))
		require.NoError(t, err)
		assert.Empty(t, store.Providers())
		assert.Equal(t, llm.ProviderGemini, store.Default())
		_, err = os.Stat(store.path)
		assert.ErrorIs(t, err, os.ErrNotExist, "opening never writes")
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		dir := testutil.TempDir(t)
		writeKeyFile(t, dir, "not valid json", 0o600)

		_, err := NewStore(dir)
		assert.ErrorContains(t, err, "auth.json")
	})

	t.Run("newer layout is refused", func(t *testing.T) {
		dir := testutil.TempDir(t)
		writeKeyFile(t, dir, `{"version": 9, "keys": {}}`, 0o600)

		_, err := NewStore(dir)
		assert.ErrorIs(t, err, ErrNewerStore)
	})
}

func TestStoreLoad(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		providers []llm.ProviderID
		keys      map[llm.ProviderID]string
		def       llm.ProviderID
	}{
		{
			name:      "current layout",
			body:      `{"version": 2, "default_provider": "openai", "keys": {"openai": {"key": "sk-1", "saved_at": "2026-03-01T10:00:00Z"}}}`,
			providers: []llm.ProviderID{llm.ProviderOpenAI},
			keys:      map[llm.ProviderID]string{llm.ProviderOpenAI: "sk-1"},
			def:       llm.ProviderOpenAI,
		},
		{
			name:      "version 1 api keys are migrated",
			body:      `{"version": 1, "default_provider": "anthropic", "providers": {"anthropic": {"type": "api", "key": "sk-ant"}}}`,
			providers: []llm.ProviderID{llm.ProviderAnthropic},
			keys:      map[llm.ProviderID]string{llm.ProviderAnthropic: "sk-ant"},
			def:       llm.ProviderAnthropic,
		},
		{
			name:      "version 1 oauth tokens are dropped",
			body:      `{"version": 1, "providers": {"openai": {"type": "oauth", "access_token": "tok"}, "gemini": {"type": "api", "key": "g"}}}`,
			providers: []llm.ProviderID{llm.ProviderGemini},
			keys:      map[llm.ProviderID]string{llm.ProviderGemini: "g"},
			def:       llm.ProviderGemini,
		},
		{
			name:      "current keys win over version 1 entries",
			body:      `{"version": 2, "keys": {"openai": {"key": "new"}}, "providers": {"openai": {"type": "api", "key": "old"}}}`,
			providers: []llm.ProviderID{llm.ProviderOpenAI},
			keys:      map[llm.ProviderID]string{llm.ProviderOpenAI: "new"},
			def:       llm.ProviderGemini,
		},
		{
			name:      "unknown providers and blank keys are skipped",
			body:      `{"version": 2, "default_provider": "venice", "keys": {"venice": {"key": "v"}, "openrouter": {"key": "  "}, "gemini": {"key": " g-key\n"}}}`,
			providers: []llm.ProviderID{llm.ProviderGemini},
			keys:      map[llm.ProviderID]string{llm.ProviderGemini: "g-key"},
			def:       llm.ProviderGemini,
		},
		{
			name:      "missing keys field",
			body:      `{"version": 2}`,
			providers: []llm.ProviderID{},
			def:       llm.ProviderGemini,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := testutil.TempDir(t)
			writeKeyFile(t, dir, tt.body, 0o600)

			store, err := NewStore(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.providers, store.Providers())
			assert.Equal(t, tt.def, store.Default())
			for id, want := range tt.keys {
				saved, ok := store.Key(id)
				require.True(t, ok, "no key for %s", id)
				assert.Equal(t, want, saved.Key)
			}
		})
	}
}

func TestStoreMigratedFileIsRewritten(t *testing.T) {
	dir := testutil.TempDir(t)
	path := writeKeyFile(t, dir, `{"version": 1, "providers": {"anthropic": {"type": "api", "key": "sk-ant", "created": "2025-11-02T08:30:00Z"}}}`, 0o600)

	store, err := NewStore(dir)
	require.NoError(t, err)
	saved, ok := store.Key(llm.ProviderAnthropic)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 11, 2, 8, 30, 0, 0, time.UTC), saved.SavedAt)

	require.NoError(t, store.Save(llm.ProviderOpenAI, "sk-openai"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var f map[string]any
	require.NoError(t, json.Unmarshal(raw, &f))
	assert.EqualValues(t, storeVersion, f["version"])
	assert.NotContains(t, f, "providers")
	assert.Contains(t, f["keys"], "anthropic")
	assert.Contains(t, f["keys"], "openai")
}

func TestStoreSave(t *testing.T) {
	dir := testutil.TempDir(t)
	store, err := NewStore(dir)
	require.NoError(t, err)
	stamp := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return stamp }

	require.NoError(t, store.Save(llm.ProviderOpenAI, "  sk-openai\n"))
	saved, ok := store.Key(llm.ProviderOpenAI)
	require.True(t, ok)
	assert.Equal(t, SavedKey{Key: "sk-openai", SavedAt: stamp}, saved)

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	saved, ok = reopened.Key(llm.ProviderOpenAI)
	require.True(t, ok)
	assert.Equal(t, "sk-openai", saved.Key)
	assert.True(t, stamp.Equal(saved.SavedAt))

	assert.ErrorContains(t, store.Save(llm.ProviderOpenAI, "   "), "empty API key")
	assert.ErrorContains(t, store.Save("venice", "k"), `unknown provider "venice"`)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files are cleaned up")
	assert.Equal(t, storeFileName, entries[0].Name())
}

func TestStoreForget(t *testing.T) {
	dir := testutil.TempDir(t)
	store, err := NewStore(dir)
	require.NoError(t, err)

	removed, err := store.Forget(llm.ProviderAnthropic)
	require.NoError(t, err)
	assert.False(t, removed)
	_, err = os.Stat(store.path)
	assert.ErrorIs(t, err, os.ErrNotExist, "nothing to forget means no write")

	require.NoError(t, store.Save(llm.ProviderAnthropic, "sk-ant"))
	removed, err = store.Forget(llm.ProviderAnthropic)
	require.NoError(t, err)
	assert.True(t, removed)
	_, ok := store.Key(llm.ProviderAnthropic)
	assert.False(t, ok)

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	assert.Empty(t, reopened.Providers())
}

func TestStoreDefault(t *testing.T) {
	dir := testutil.TempDir(t)
	store, err := NewStore(dir)
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderGemini, store.Default())

	require.NoError(t, store.SetDefault(llm.ProviderOpenRouter))
	assert.Equal(t, llm.ProviderOpenRouter, store.Default())
	assert.Error(t, store.SetDefault("venice"))
	assert.Equal(t, llm.ProviderOpenRouter, store.Default())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderOpenRouter, reopened.Default())
}

func TestStoreProvidersSorted(t *testing.T) {
	store, err := NewStore(testutil.TempDir(t))
	require.NoError(t, err)

	require.NoError(t, store.Save(llm.ProviderOpenRouter, "k1"))
	require.NoError(t, store.Save(llm.ProviderAnthropic, "k2"))
	require.NoError(t, store.Save(llm.ProviderGemini, "k3"))

	assert.Equal(t, []llm.ProviderID{llm.ProviderAnthropic, llm.ProviderGemini, llm.ProviderOpenRouter}, store.Providers())
}

func TestStoreFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}

	t.Run("saved file is owner only", func(t *testing.T) {
		store, err := NewStore(testutil.TempDir(t))
		require.NoError(t, err)
		require.NoError(t, store.Save(llm.ProviderAnthropic, "k"))

		info, err := os.Stat(store.path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(storePerm), info.Mode().Perm())
	})

	t.Run("readable file is tightened on open", func(t *testing.T) {
		dir := testutil.TempDir(t)
		path := writeKeyFile(t, dir, `{"version": 2, "keys": {"gemini": {"key": "g"}}}`, 0o600)
		require.NoError(t, os.Chmod(path, 0o644))

		_, err := NewStore(dir)
		require.NoError(t, err)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(storePerm), info.Mode().Perm())
	})
}

func TestStoreConcurrency(t *testing.T) {
	store, err := NewStore(testutil.TempDir(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Save(llm.ProviderAnthropic, fmt.Sprintf("key-%d", i)))
		}(i)
		go func() {
			defer wg.Done()
			_, _ = store.Key(llm.ProviderAnthropic)
			store.Providers()
			store.Default()
		}()
	}
	wg.Wait()

	reopened, err := NewStore(filepath.Dir(store.path))
	require.NoError(t, err)
	assert.Equal(t, []llm.ProviderID{llm.ProviderAnthropic}, reopened.Providers())
}
