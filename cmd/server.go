package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/mapview/internal/animals"
	"github.com/ziadkadry99/mapview/internal/chat"
	"github.com/ziadkadry99/mapview/internal/config"
	"github.com/ziadkadry99/mapview/internal/mapimage"
	"github.com/ziadkadry99/mapview/internal/server"
	"github.com/ziadkadry99/mapview/internal/session"
	"github.com/ziadkadry99/mapview/internal/viewer"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the map viewer web server",
	Long:  `Starts the mapview web server: the map page, the viewer session API and websocket, the guide chat, and the animal detail API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = serverPort
		}
		log := newLogger(cfg)

		sessions, err := session.NewManager(cfg.Map.Sensitivity, cfg.InitialMarkers(), log)
		if err != nil {
			return fmt.Errorf("creating session manager: %w", err)
		}
		dir, err := animals.NewDirectory(cfg.Animals)
		if err != nil {
			return fmt.Errorf("loading animal profiles: %w", err)
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		asset := loadAsset(cfg, log)
		chatSvc := newChatService(cfg, database, log)

		srv := server.New(server.Config{
			Port:     cfg.Port,
			AllowAll: cfg.AllowAllOrigins,
		}, log)

		registerAllRoutes(srv, sessions, asset, dir, chatSvc, log)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go sessions.RunReaper(ctx, time.Duration(cfg.SessionIdleMin)*time.Minute)

		go func() {
			<-ctx.Done()
			log.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		log.Info().
			Str("version", Version).
			Int("port", cfg.Port).
			Str("database", database.Path()).
			Float64("sensitivity", cfg.Map.Sensitivity).
			Int("markers", len(cfg.Markers)).
			Str("chat_provider", string(cfg.Chat.Provider)).
			Msg("mapview server starting")

		return srv.Start()
	},
}

// registerAllRoutes wires up all feature routes.
func registerAllRoutes(srv *server.Server, sessions *session.Manager, asset *mapimage.Asset, dir *animals.Directory, chatSvc *chat.Service, log zerolog.Logger) {
	r := srv.Router()

	// Map page, viewer sessions and gesture websocket
	viewer.New(sessions, asset, log).RegisterRoutes(r)

	// Detail drawer
	animals.RegisterRoutes(r, dir)

	// Chat drawer
	chat.RegisterRoutes(r, chatSvc)
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", config.DefaultConfig().Port, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serverCmd)
}
