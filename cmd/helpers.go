package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/mapview/internal/chat"
	"github.com/ziadkadry99/mapview/internal/config"
	"github.com/ziadkadry99/mapview/internal/db"
	"github.com/ziadkadry99/mapview/internal/llm"
	"github.com/ziadkadry99/mapview/internal/logging"
	"github.com/ziadkadry99/mapview/internal/mapimage"
	"github.com/ziadkadry99/mapview/internal/markers"
)

// loadConfig loads and validates the config. Validation failures are
// configuration errors and stop the command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `mapview init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		var dup *markers.ConfigError
		if errors.As(err, &dup) {
			return nil, fmt.Errorf("invalid marker list in %s: %w", cfgFile, err)
		}
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the process logger from config and flags.
func newLogger(cfg *config.Config) zerolog.Logger {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return logging.Setup(os.Stderr, level, !logJSON)
}

// loadAsset reads the configured map image. A missing image is not fatal:
// the viewer still runs and clients report the natural size themselves.
func loadAsset(cfg *config.Config, log zerolog.Logger) *mapimage.Asset {
	asset, err := mapimage.Load(cfg.Map.Image)
	if err != nil {
		log.Warn().Err(err).Str("image", cfg.Map.Image).Msg("map image unavailable")
		return nil
	}
	log.Info().Str("image", asset.Name).Int("width", asset.Width).Int("height", asset.Height).Msg("map image loaded")
	return asset
}

// createLLMProviderFromConfig creates the rate-limited chat provider. A
// provider that cannot be built (usually a missing API key) is logged and
// left nil, so chat messages fail visibly instead of the server refusing
// to start.
func createLLMProviderFromConfig(cfg *config.Config, log zerolog.Logger) llm.Provider {
	p, err := llm.NewProvider(string(cfg.Chat.Provider), cfg.Chat.Model)
	if err != nil {
		log.Warn().Err(err).Str("provider", string(cfg.Chat.Provider)).Msg("chat provider unavailable")
		return nil
	}
	return llm.NewRateLimitedProvider(p, cfg.Chat.RequestsPerMinute)
}

// openDatabase opens the transcript database under data_dir.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	path := filepath.Join(cfg.DataDir, "mapview.db")
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	return database, nil
}

// newChatService wires the chat service from config.
func newChatService(cfg *config.Config, database *db.DB, log zerolog.Logger) *chat.Service {
	return chat.NewService(chat.NewStore(database), createLLMProviderFromConfig(cfg, log), chat.Options{
		Model:        cfg.Chat.Model,
		SystemPrompt: cfg.Chat.SystemPrompt,
		Timeout:      time.Duration(cfg.Chat.TimeoutSeconds) * time.Second,
		MaxTokens:    cfg.Chat.MaxTokens,
		Temperature:  cfg.Chat.Temperature,
		HistoryLimit: cfg.Chat.HistoryLimit,
	}, log)
}
