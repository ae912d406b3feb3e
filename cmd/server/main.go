// Package main is the entry point for the compendium server and CLI
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-compendium/cmd/server/client"
	"github.com/KirkDiggler/rpg-compendium/internal/config"
)

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "rpg-compendium",
	Short: "Compendium lookup and budget-constrained item resolution",
	Long: `rpg-compendium resolves free-text item, spell and feature references against a
cached snapshot of a game system's compendium, choosing items that fit a budget tier.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(logLevel)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config overlay")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(rebuildCacheCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(client.ClientCmd)
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
