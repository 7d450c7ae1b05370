package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dgallion1/docview/internal/clock"
	"github.com/dgallion1/docview/internal/content"
	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/render"
	"github.com/spf13/cobra"
)

var copyPrint bool

var copyCmd = &cobra.Command{
	Use:   "copy <source> <block>",
	Short: "Copy a code block from a document to the system clipboard",
	Long: `Copies the text of code block <block> (zero based, in document order)
from <source> ("primary" or "reference") to the system clipboard.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := doctree.ParseSource(args[0])
		if err != nil {
			return err
		}
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid block index %q: %w", args[1], err)
		}

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

		doc, err := render.Mount(res.Content.Get(src))
		if err != nil {
			return fmt.Errorf("mounting %s: %w", src, err)
		}

		var cb render.Clipboard = render.SystemClipboard{}
		if copyPrint {
			cb = render.ClipboardFunc(func(_ context.Context, text string) error {
				_, err := fmt.Fprint(cmd.OutOrStdout(), text)
				return err
			})
		}
		aug := render.NewAugmenter(cb, clock.Real(), cfg.CopyFeedback, log)
		n := aug.Augment(doc)

		ctrl, ok := doc.Control(index)
		if !ok {
			return fmt.Errorf("%s has %d code blocks, no block %d", src, n, index)
		}
		if err := ctrl.Click(cmd.Context()); err != nil {
			return err
		}
		if !copyPrint {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes)\n", ctrl.Label(), len(ctrl.Text()))
		}
		return nil
	},
}

func init() {
	copyCmd.Flags().BoolVar(&copyPrint, "print", false, "write the block to stdout instead of the clipboard")
	rootCmd.AddCommand(copyCmd)
}
