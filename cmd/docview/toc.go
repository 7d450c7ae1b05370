package main

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docview/internal/content"
	"github.com/dgallion1/docview/internal/doctree"
	"github.com/spf13/cobra"
)

var tocCmd = &cobra.Command{
	Use:   "toc",
	Short: "Print the sidebar sections of both documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)
		loader, closeFn := offlineLoader(cfg, log)
		defer closeFn()

		res, err := loader.LoadAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("%s: %w", content.UserMessage, err)
		}

		titles := map[doctree.ContentSource]string{
			doctree.Primary:   cfg.PrimaryTitle,
			doctree.Reference: cfg.ReferenceTitle,
		}
		out := cmd.OutOrStdout()
		for _, src := range doctree.Sources {
			title := titles[src]
			if t := res.Document(src).Title; t != "" {
				title = t
			}
			fmt.Fprintf(out, "%s (%s)\n", title, src)
			for _, s := range doctree.Filter(res.Sections, src) {
				indent := strings.Repeat("  ", s.Level)
				fmt.Fprintf(out, "%s%s  #%s\n", indent, s.Title, s.ID)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tocCmd)
}
