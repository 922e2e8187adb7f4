package auth

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ashalaginvimeo/AS-test/internal/llm"
)

// ErrNoCredential is returned when no source yields a key for a provider
var ErrNoCredential = errors.New("no API key found")

// Source names where a resolved key came from
type Source string

const (
	SourceEnv    Source = "env"
	SourceConfig Source = "config"
	SourceStore  Source = "auth.json"
)

var envRef = regexp.MustCompile(`\{env:([^}]+)\}`)

// Manager handles authentication for LLM providers
type Manager struct {
	store      *Store
	configKeys map[llm.ProviderID]string
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithConfigKeys supplies api_key values from the config file, keyed by provider.
// Values may reference environment variables as {env:VAR}.
func WithConfigKeys(keys map[string]string) ManagerOption {
	return func(m *Manager) {
		for id, key := range keys {
			m.configKeys[llm.ProviderID(strings.ToLower(id))] = key
		}
	}
}

// NewManager creates a new auth manager
func NewManager(dataDir string, opts ...ManagerOption) (*Manager, error) {
	store, err := NewStore(dataDir)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		store:      store,
		configKeys: make(map[llm.ProviderID]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// GetAPIKey returns the API key for a provider using priority resolution:
// 1. Environment variables, in provider order
// 2. Config file (with env substitution)
// 3. Stored auth.json
func (m *Manager) GetAPIKey(providerID llm.ProviderID) (string, error) {
	key, _, err := m.Resolve(providerID)
	return key, err
}

// Resolve is GetAPIKey that also reports the winning source
func (m *Manager) Resolve(providerID llm.ProviderID) (string, Source, error) {
	for _, envVar := range llm.EnvVarsForProvider(providerID) {
		if key := strings.TrimSpace(os.Getenv(envVar)); key != "" {
			return key, SourceEnv, nil
		}
	}

	if raw, ok := m.configKeys[providerID]; ok {
		if key := strings.TrimSpace(resolveEnvSubstitution(raw)); key != "" {
			return key, SourceConfig, nil
		}
	}

	if saved, ok := m.store.Key(providerID); ok {
		return saved.Key, SourceStore, nil
	}

	return "", "", fmt.Errorf("%w for provider %s (set %s or run `copilot auth set %s`)",
		ErrNoCredential, providerID, strings.Join(llm.EnvVarsForProvider(providerID), ", "), providerID)
}

// SetAPIKey saves an API key for a provider
func (m *Manager) SetAPIKey(providerID llm.ProviderID, key string) error {
	return m.store.Save(providerID, key)
}

// RemoveCredential deletes the saved key for a provider and reports whether there was one.
// Keys from the environment or config file are unaffected.
func (m *Manager) RemoveCredential(providerID llm.ProviderID) (bool, error) {
	return m.store.Forget(providerID)
}

// HasCredential checks if any source has a key for the provider
func (m *Manager) HasCredential(providerID llm.ProviderID) bool {
	_, _, err := m.Resolve(providerID)
	return err == nil
}

// ListConnected returns all providers with credentials
func (m *Manager) ListConnected() []llm.ProviderID {
	connected := make([]llm.ProviderID, 0)

	for _, id := range llm.AllProviderIDs() {
		if m.HasCredential(id) {
			connected = append(connected, id)
		}
	}

	return connected
}

// GetDefaultProvider returns the default provider ID
func (m *Manager) GetDefaultProvider() llm.ProviderID {
	return m.store.Default()
}

// SetDefaultProvider sets the default provider
func (m *Manager) SetDefaultProvider(providerID llm.ProviderID) error {
	return m.store.SetDefault(providerID)
}

// resolveEnvSubstitution replaces {env:VAR_NAME} with environment variable values
func resolveEnvSubstitution(value string) string {
	if !strings.Contains(value, "{env:") {
		return value
	}

	return envRef.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[5 : len(match)-1]
		return os.Getenv(varName)
	})
}
