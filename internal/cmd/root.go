// Package cmd implements alacarte's CLI surface (SPEC_FULL.md §A "CLI
// shape"), built the teacher's way: spf13/cobra for subcommands and
// spf13/viper for layered config (flags > env > file > defaults), with
// logging set up once in cobra.OnInitialize before any subcommand runs.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var logger *slog.Logger

var rootCmd = &cobra.Command{
	Use:   "alacarte",
	Short: "A MapCSS-styled slippy-map tile server",
	Long: `alacarte renders styled map tiles from preloaded OpenStreetMap geodata
using MapCSS stylesheets, serving them over HTTP with in-memory and
on-disk tile caching, hot-reloading stylesheets, and bounded-queue
render admission control.`,
}

// Execute runs the CLI, exiting the process on error.
func Execute() {
	if logger == nil {
		initLogging()
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./alacarte.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("style-source", "./styles", "Directory of *.mapcss stylesheets to load and watch")
	rootCmd.PersistentFlags().String("default-style", "/default", "Stylesheet name requests fall back to when the requested one is missing")
	rootCmd.PersistentFlags().String("default-tile", "", "Path to the static tile served on internal error")
	rootCmd.PersistentFlags().String("geodata", "", "Path to a preloaded binary geodata file")
	rootCmd.PersistentFlags().Int("cache-size", 4096, "Number of tiles the in-memory LRU retains")
	rootCmd.PersistentFlags().Int("cache-keep-tile", 12, "Highest zoom level spilled to disk on eviction")
	rootCmd.PersistentFlags().String("cache-path", "./cache", "Disk spillover directory for evicted tiles")
	rootCmd.PersistentFlags().Duration("parse-timeout", 0, "Timeout for a single stylesheet parse (0 keeps the built-in default)")

	for _, name := range []string{
		"log-level", "style-source", "default-style", "default-tile",
		"geodata", "cache-size", "cache-keep-tile", "cache-path", "parse-timeout",
	} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %q: %v", name, err))
		}
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("alacarte")
	}

	viper.SetEnvPrefix("ALACARTE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetString("log-level") == "debug" {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func initLogging() {
	levelStr := strings.ToLower(viper.GetString("log-level"))
	level := slog.LevelInfo
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error", "err":
		level = slog.LevelError
	default:
		fmt.Fprintf(os.Stderr, "Unknown log level %q, defaulting to info\n", levelStr)
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}
