package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/mapview/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize mapview configuration with an interactive wizard",
	Long:  `Runs an interactive wizard that picks the map image, drag sensitivity, chat provider and port, and writes a .mapview.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
