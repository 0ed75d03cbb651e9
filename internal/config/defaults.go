package config

import (
	"github.com/ziadkadry99/mapview/internal/animals"
)

// defaultModels maps each provider to the model used when none is configured.
var defaultModels = map[ProviderType]string{
	ProviderGoogle:    "gemini-2.0-flash",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-haiku-4-5-20251001",
	ProviderOllama:    "llama3",
}

// DefaultSystemPrompt frames the chat drawer as a guide to the animals on the map.
const DefaultSystemPrompt = `You are a friendly guide for an interactive animal map.
Answer briefly and in the same language as the visitor.`

// DefaultMarkers are the markers placed on a fresh map.
var DefaultMarkers = []MarkerConfig{
	{ID: "dog1", X: 50, Y: 50},
	{ID: "dog2", X: 100, Y: 100},
	{ID: "dog3", X: 150, Y: 150},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	markers := make([]MarkerConfig, len(DefaultMarkers))
	copy(markers, DefaultMarkers)

	return &Config{
		Port:     8080,
		DataDir:  "data",
		LogLevel: "info",
		// REST-created sessions are reaped after this long without use.
		SessionIdleMin: 30,
		Map: MapConfig{
			Image:       "future_map.png",
			Sensitivity: 1,
		},
		Markers: markers,
		Chat: ChatConfig{
			Provider:          ProviderGoogle,
			Model:             defaultModels[ProviderGoogle],
			SystemPrompt:      DefaultSystemPrompt,
			TimeoutSeconds:    60,
			RequestsPerMinute: 30,
			MaxTokens:         1024,
			Temperature:       0.7,
			HistoryLimit:      20,
		},
		Animals: animals.DefaultProfiles(),
	}
}

// DefaultModel returns the model used for a provider when none is set.
// Unknown providers fall back to the Google default.
func DefaultModel(provider ProviderType) string {
	if m, ok := defaultModels[provider]; ok {
		return m
	}
	return defaultModels[ProviderGoogle]
}
