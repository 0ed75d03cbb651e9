package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/mapview/internal/markers"
	"github.com/ziadkadry99/mapview/internal/viewport"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use a double
// underscore: MAPVIEW_MAP__SENSITIVITY -> map.sensitivity.
const EnvPrefix = "MAPVIEW_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (MAPVIEW_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	// Lists from the file replace the defaults instead of merging into them.
	if k.Exists("markers") {
		cfg.Markers = nil
	}
	if k.Exists("animals") {
		cfg.Animals = nil
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.Chat.Model == "" {
		cfg.Chat.Model = DefaultModel(cfg.Chat.Provider)
	}

	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderGoogle:    true,
	ProviderOpenAI:    true,
	ProviderAnthropic: true,
	ProviderOllama:    true,
}

// Validate checks that the configuration contains valid values. A duplicate
// marker id is reported as a *markers.ConfigError.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.SessionIdleMin < 0 {
		return fmt.Errorf("session_idle_minutes must be non-negative")
	}

	if c.Map.Image == "" {
		return fmt.Errorf("map.image is required")
	}

	if c.Map.Sensitivity <= 0 {
		return fmt.Errorf("map.sensitivity must be positive, got %v", c.Map.Sensitivity)
	}

	for i, m := range c.Markers {
		if m.ID == "" {
			return fmt.Errorf("markers[%d]: id is required", i)
		}
	}
	if _, err := markers.New(c.InitialMarkers()); err != nil {
		return err
	}

	if c.Chat.Provider == "" {
		return fmt.Errorf("chat.provider is required")
	}
	if !validProviders[c.Chat.Provider] {
		return fmt.Errorf("invalid chat.provider %q: must be one of google, openai, anthropic, ollama", c.Chat.Provider)
	}

	if c.Chat.Model == "" {
		return fmt.Errorf("chat.model is required")
	}

	if c.Chat.TimeoutSeconds < 0 {
		return fmt.Errorf("chat.timeout_seconds must be non-negative")
	}

	if c.Chat.RequestsPerMinute < 0 {
		return fmt.Errorf("chat.requests_per_minute must be non-negative")
	}

	if c.Chat.HistoryLimit < 0 {
		return fmt.Errorf("chat.history_limit must be non-negative")
	}

	return nil
}

// InitialMarkers converts the configured marker list for the marker store.
func (c *Config) InitialMarkers() []markers.Marker {
	out := make([]markers.Marker, 0, len(c.Markers))
	for _, m := range c.Markers {
		out = append(out, markers.Marker{
			ID:       m.ID,
			Position: viewport.Vec{X: m.X, Y: m.Y},
		})
	}
	return out
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGoogle:
		return "GOOGLE_API_KEY"
	default:
		return ""
	}
}
