package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/location-builder/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "location-builder",
	Short: "Radius search over US county demographics",
	Long:  "Finds the counties within a radius of a postal code, aggregates their city demographics and filters them by population, age, income, home value, ownership and state.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if mode := configMode(cmd); mode != "" {
			if err := cfg.Validate(mode); err != nil {
				return err
			}
			zap.L().Debug("config validated",
				zap.String("mode", mode),
				zap.String("store_driver", cfg.Store.Driver),
			)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// configModeKey annotates a command with the config.Validate mode it needs.
// Subcommands inherit the mode of the nearest annotated ancestor.
const configModeKey = "config-mode"

func configMode(cmd *cobra.Command) string {
	for c := cmd; c != nil; c = c.Parent() {
		if mode, ok := c.Annotations[configModeKey]; ok {
			return mode
		}
	}
	return ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
