package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/mapview/internal/animals"
	mcpserver "github.com/ziadkadry99/mapview/internal/mcp"
	"github.com/ziadkadry99/mapview/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio. The agent drives one viewer session: load the map, pan it, list markers, read animal profiles and ask the guide.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// Stdout carries the MCP protocol; logs go to stderr.
		log := newLogger(cfg)

		sess, err := session.New(uuid.New().String(), cfg.Map.Sensitivity, cfg.InitialMarkers(), log)
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
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

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		log.Info().Str("session", sess.ID).Msg("mapview MCP server started on stdio")

		srv := mcpserver.NewServer(sess, dir, chatSvc, asset)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
