package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ashalaginvimeo/AS-test/internal/llm"
)

const (
	storeFileName = "auth.json"
	storeVersion  = 2
	storePerm     = 0o600
)

// ErrNewerStore is returned when auth.json uses a layout this build does not know
var ErrNewerStore = errors.New("auth.json was written by a newer copilot")

// SavedKey is an API key saved with `copilot auth set`
type SavedKey struct {
	Key     string    `json:"key"`
	SavedAt time.Time `json:"saved_at"`
}

// keyFile is the on-disk layout. Version 1 files keep their keys under
// "providers" and are rewritten as version 2 on the next save.
type keyFile struct {
	Version   int                                 `json:"version"`
	Default   llm.ProviderID                      `json:"default_provider,omitempty"`
	Keys      map[llm.ProviderID]SavedKey         `json:"keys"`
	Providers map[llm.ProviderID]legacyCredential `json:"providers,omitempty"`
}

type legacyCredential struct {
	Type    string `json:"type"`
	Key     string `json:"key"`
	Created string `json:"created"`
}

// Store keeps saved API keys in <dataDir>/auth.json
type Store struct {
	mu   sync.RWMutex
	path string
	keys map[llm.ProviderID]SavedKey
	def  llm.ProviderID
	now  func() time.Time
}

// NewStore opens the key file under dataDir, creating the directory if needed.
// A missing file is an empty store.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Store{
		path: filepath.Join(dataDir, storeFileName),
		keys: make(map[llm.ProviderID]SavedKey),
		now:  time.Now,
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", storeFileName, err)
	}
	return s, nil
}

func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var f keyFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if f.Version > storeVersion {
		return fmt.Errorf("%w (version %d)", ErrNewerStore, f.Version)
	}

	for id, k := range f.Keys {
		s.keep(id, k)
	}
	for id, c := range f.Providers {
		// OAuth tokens from older files are not API keys
		if c.Type != "" && c.Type != "api" {
			continue
		}
		if _, ok := s.keys[id]; ok {
			continue
		}
		saved := SavedKey{Key: c.Key}
		if t, err := time.Parse(time.RFC3339, c.Created); err == nil {
			saved.SavedAt = t
		}
		s.keep(id, saved)
	}
	if knownProvider(f.Default) {
		s.def = f.Default
	}

	return tightenPerm(s.path)
}

// keep drops entries for providers this build cannot call and blank keys
func (s *Store) keep(id llm.ProviderID, k SavedKey) {
	k.Key = strings.TrimSpace(k.Key)
	if !knownProvider(id) || k.Key == "" {
		return
	}
	s.keys[id] = k
}

func knownProvider(id llm.ProviderID) bool {
	return slices.Contains(llm.AllProviderIDs(), id)
}

// tightenPerm restores owner-only access to a key file copied in by hand
func tightenPerm(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0o077 != 0 {
		return os.Chmod(path, storePerm)
	}
	return nil
}

// saveLocked replaces the key file through a temp file in the same directory
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(keyFile{
		Version: storeVersion,
		Default: s.def,
		Keys:    s.keys,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", storeFileName, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "auth-*.json")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", storeFileName, err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", storeFileName, err)
	}
	if err := tmp.Chmod(storePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", storeFileName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", storeFileName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", storeFileName, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to save %s: %w", storeFileName, err)
	}
	return nil
}

// Key returns the saved key for a provider
func (s *Store) Key(id llm.ProviderID) (SavedKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[id]
	return k, ok
}

// Save stores key for a provider, replacing any earlier one
func (s *Store) Save(id llm.ProviderID, key string) error {
	if !knownProvider(id) {
		return fmt.Errorf("unknown provider %q", id)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("empty API key for provider %s", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[id] = SavedKey{Key: key, SavedAt: s.now().UTC()}
	return s.saveLocked()
}

// Forget deletes the saved key for a provider and reports whether one existed.
// The file is left untouched when there was nothing to delete.
func (s *Store) Forget(id llm.ProviderID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[id]; !ok {
		return false, nil
	}
	delete(s.keys, id)
	return true, s.saveLocked()
}

// Default returns the provider used when none is configured, Gemini unless set
func (s *Store) Default() llm.ProviderID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.def == "" {
		return llm.ProviderGemini
	}
	return s.def
}

// SetDefault records the default provider
func (s *Store) SetDefault(id llm.ProviderID) error {
	if !knownProvider(id) {
		return fmt.Errorf("unknown provider %q", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.def = id
	return s.saveLocked()
}

// Providers returns the providers with a saved key, sorted
func (s *Store) Providers() []llm.ProviderID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]llm.ProviderID, 0, len(s.keys))
	for id := range s.keys {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
