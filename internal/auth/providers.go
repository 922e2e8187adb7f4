package auth

import "github.com/ashalaginvimeo/AS-test/internal/llm"

// ProviderAuthInfo is the help shown when asking for a provider's key
type ProviderAuthInfo struct {
	Label       string
	Description string
}

// GetProviderAuthInfo returns key instructions for a provider
func GetProviderAuthInfo(providerID llm.ProviderID) ProviderAuthInfo {
	info, ok := providerAuthConfigs[providerID]
	if !ok {
		return ProviderAuthInfo{Label: "API Key", Description: "Enter your API key"}
	}
	return info
}

var providerAuthConfigs = map[llm.ProviderID]ProviderAuthInfo{
	llm.ProviderGemini: {
		Label:       "Gemini API Key",
		Description: "Get your API key from aistudio.google.com/apikey",
	},
	llm.ProviderOpenAI: {
		Label:       "OpenAI API Key",
		Description: "Get your API key from platform.openai.com/api-keys",
	},
	llm.ProviderOpenRouter: {
		Label:       "OpenRouter API Key",
		Description: "Get your API key from openrouter.ai/settings/keys",
	},
	llm.ProviderAnthropic: {
		Label:       "Anthropic API Key",
		Description: "Get your API key from console.anthropic.com",
	},
}

// GetEnvVarHint returns the primary environment variable for a provider's API key
func GetEnvVarHint(providerID llm.ProviderID) string {
	return llm.EnvVarForProvider(providerID)
}
