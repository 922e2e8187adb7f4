package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// openRouterModelsURL is the catalogue endpoint; tests point it at a local server
var openRouterModelsURL = openRouterBaseURL + "/models"

const (
	capabilityTTL = 6 * time.Hour
	// failed catalogue pulls are retried sooner than successful ones expire
	capabilityFailureTTL = 5 * time.Minute
	catalogueTimeout     = 10 * time.Second
)

var catalogueClient = &http.Client{Timeout: catalogueTimeout}

// CapabilitiesCache caches per-provider model capability lookups.
// A fresh entry answers every model, including ones the catalogue does not list.
type CapabilitiesCache struct {
	mu      sync.Mutex
	fetchMu sync.Mutex
	entries map[ProviderID]capEntry
}

type capEntry struct {
	expiry  time.Time
	support map[string]bool // modelID -> supportsStructuredOutput
}

var structuredCapCache = &CapabilitiesCache{
	entries: make(map[ProviderID]capEntry),
}

// StructuredOutputForModel returns (supports, known) for a provider/model.
// known==false means we could not determine and callers may choose to fallback.
func StructuredOutputForModel(ctx context.Context, provider Provider, modelID string, openRouterAPIKey string) (bool, bool) {
	// Prefer the provider's static model list.
	if m, ok := findModel(modelID, provider.Models()); ok {
		return m.StructuredOutput, true
	}

	// Dynamic fetch for OpenRouter to avoid stale model lists.
	if provider.ID() == ProviderOpenRouter {
		if supports, known := structuredCapCache.fetchOpenRouter(ctx, openRouterAPIKey, modelID); known {
			return supports, true
		}
	}

	return true, false // default optimistic
}

func (c *CapabilitiesCache) fetchOpenRouter(ctx context.Context, apiKey, targetModel string) (bool, bool) {
	if apiKey == "" {
		return false, false
	}

	if v, found, fresh := c.lookup(ProviderOpenRouter, targetModel); fresh {
		return v, found
	}

	// One pull at a time; waiters reuse the entry the winner stored.
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()
	if v, found, fresh := c.lookup(ProviderOpenRouter, targetModel); fresh {
		return v, found
	}

	ctx, cancel := context.WithTimeout(ctx, catalogueTimeout)
	defer cancel()

	ttl := capabilityTTL
	support, err := pullOpenRouterModels(ctx, apiKey)
	if err != nil {
		ttl = capabilityFailureTTL
		support = map[string]bool{}
	}

	c.mu.Lock()
	c.entries[ProviderOpenRouter] = capEntry{
		expiry:  time.Now().Add(ttl),
		support: support,
	}
	c.mu.Unlock()

	v, found := support[targetModel]
	return v, found
}

// lookup reports the cached answer for modelID and whether the entry is still fresh.
func (c *CapabilitiesCache) lookup(id ProviderID, modelID string) (supports, found, fresh bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[id]
	if !ok || !time.Now().Before(entry.expiry) {
		return false, false, false
	}
	supports, found = entry.support[modelID]
	return supports, found, true
}

func (c *CapabilitiesCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[ProviderID]capEntry)
}

func pullOpenRouterModels(ctx context.Context, apiKey string) (map[string]bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openRouterModelsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := catalogueClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openrouter models: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	out := make(map[string]bool)
	for _, raw := range body.Data {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		id, _ := m["id"].(string)
		if id == "" {
			continue
		}
		out[id] = supportsStructuredInOpenRouter(m)
	}
	return out, nil
}

func supportsStructuredInOpenRouter(m map[string]any) bool {
	// supported_parameters array check
	if arr, ok := m["supported_parameters"]; ok {
		if hasStructuredParam(arr) {
			return true
		}
	}
	// top_provider.supported_parameters
	if tp, ok := m["top_provider"].(map[string]any); ok {
		if arr, ok := tp["supported_parameters"]; ok && hasStructuredParam(arr) {
			return true
		}
	}
	return false
}

func hasStructuredParam(v any) bool {
	arr, ok := v.([]any)
	if !ok {
		return false
	}
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.ToLower(s)
		if s == "structured_outputs" || s == "response_format" {
			return true
		}
	}
	return false
}
