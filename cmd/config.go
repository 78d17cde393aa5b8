package cmd

import (
	"fmt"

	"github.com/iksnae/trustagent/internal"
	"github.com/spf13/cobra"
)

var configOpen bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Locate or open the settings file",
	Long: `Print the path of the settings file, creating it with defaults on
first run. With --open, the file opens in the platform's default
editor.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := appPaths()
		if err != nil {
			return fmt.Errorf("failed to resolve app directories: %w", err)
		}
		if err := paths.EnsureDirs(); err != nil {
			return fmt.Errorf("failed to create app directories: %w", err)
		}

		settingsPath := paths.SettingsPath()
		if _, err := internal.LoadOrInitConfig(settingsPath); err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}

		fmt.Println(settingsPath)

		if configOpen {
			if err := internal.OpenInEditor(settingsPath); err != nil {
				return fmt.Errorf("failed to open settings: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().BoolVar(&configOpen, "open", false, "Open the settings file in the default editor")
}
