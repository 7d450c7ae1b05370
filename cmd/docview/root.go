package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/dgallion1/docview/internal/config"
	"github.com/dgallion1/docview/internal/content"
	"github.com/dgallion1/docview/internal/docs"
	"github.com/dgallion1/docview/internal/docsource"
	"github.com/dgallion1/docview/internal/parser"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docview",
	Short: "Two-document markdown viewer with synced navigation",
	Long: `docview serves a pair of markdown documents behind a single page with a
sidebar of their headings, scroll-synced highlighting of the current
section and copy buttons on every code block.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "docview.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads and validates the config. A missing file is fine;
// defaults and DOCVIEW_* variables apply.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	lvl, _ := cfg.Level()
	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func newConverter(cfg *config.Config) *parser.Converter {
	return parser.NewConverter(parser.Options{
		Highlight:      cfg.Highlight,
		HighlightStyle: cfg.HighlightStyle,
	})
}

func contentPaths(cfg *config.Config) content.Paths {
	return content.Paths{
		Primary:   cfg.PrimaryPath,
		Reference: cfg.ReferencePath,
	}
}

// offlineLoader builds a loader for commands that run without a server.
// It fetches from docs_base_url when set, otherwise straight from the
// docs directory or the bundled documents.
func offlineLoader(cfg *config.Config, log *slog.Logger) (*content.Loader, func()) {
	if cfg.DocsBaseURL != "" {
		client := docsource.NewClient(cfg.DocsBaseURL, cfg.FetchTimeout).WithRetries(cfg.FetchRetries)
		return content.NewLoader(client, newConverter(cfg), contentPaths(cfg), log), client.Close
	}
	var fsys fs.FS = docs.FS
	if cfg.DocsDir != "" {
		fsys = os.DirFS(cfg.DocsDir)
	}
	return content.NewLoader(docsource.NewFSFetcher(fsys), newConverter(cfg), contentPaths(cfg), log), func() {}
}
