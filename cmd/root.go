package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "mapview",
	Short: "Draggable map viewer with pinned animal markers",
	Long: `mapview hosts a browser map viewer: a centered, draggable background
image with animal markers that stay pinned to the map while it pans, plus a
guide chat drawer and an animal detail drawer. Viewer state can also be
driven by AI agents over MCP.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".mapview.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON lines")
}
