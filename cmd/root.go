package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "index-bootstrap",
	Short: "Bootstrap a search core from a document collection",
	Long: `index-bootstrap recreates a search core, reconciles its schema with the
configured field types, fields and copy fields, and indexes a document
collection into it. Solr and an embedded bleve engine are supported.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("engine", "", "search engine to bootstrap (solr or bleve)")
	rootCmd.PersistentFlags().String("core", "", "name of the core to bootstrap")

	viper.BindPFlag("engine.type", rootCmd.PersistentFlags().Lookup("engine"))
	viper.BindPFlag("engine.core", rootCmd.PersistentFlags().Lookup("core"))
}

// newLogger builds the process logger from the log section of the config.
func newLogger(level, format string) *slog.Logger {
	if verbose {
		level = "debug"
	}
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
