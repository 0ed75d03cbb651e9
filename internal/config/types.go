package config

import (
	"github.com/ziadkadry99/mapview/internal/animals"
)

// ProviderType identifies the generative-model backend behind the chat drawer.
type ProviderType string

const (
	ProviderGoogle    ProviderType = "google"
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOllama    ProviderType = "ollama"
)

// Config is the top-level mapview configuration, corresponding to .mapview.yml.
type Config struct {
	Port            int               `yaml:"port" koanf:"port"`
	DataDir         string            `yaml:"data_dir" koanf:"data_dir"`
	LogLevel        string            `yaml:"log_level" koanf:"log_level"`
	AllowAllOrigins bool              `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	SessionIdleMin  int               `yaml:"session_idle_minutes" koanf:"session_idle_minutes"`
	Map             MapConfig         `yaml:"map" koanf:"map"`
	Markers         []MarkerConfig    `yaml:"markers" koanf:"markers"`
	Chat            ChatConfig        `yaml:"chat" koanf:"chat"`
	Animals         []animals.Profile `yaml:"animals" koanf:"animals"`
}

// MapConfig describes the background image and how drags translate to pans.
type MapConfig struct {
	Image       string  `yaml:"image" koanf:"image"`
	Sensitivity float64 `yaml:"sensitivity" koanf:"sensitivity"`
}

// MarkerConfig is one initial marker position.
type MarkerConfig struct {
	ID string  `yaml:"id" koanf:"id"`
	X  float64 `yaml:"x" koanf:"x"`
	Y  float64 `yaml:"y" koanf:"y"`
}

// ChatConfig configures the chat drawer's upstream model.
type ChatConfig struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	SystemPrompt      string       `yaml:"system_prompt" koanf:"system_prompt"`
	TimeoutSeconds    int          `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	RequestsPerMinute int          `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	MaxTokens         int          `yaml:"max_tokens" koanf:"max_tokens"`
	Temperature       float64      `yaml:"temperature" koanf:"temperature"`
	HistoryLimit      int          `yaml:"history_limit" koanf:"history_limit"`
}
