package cmd

import (
	"fmt"
	"io"

	"grapvid/internal/models"
	"grapvid/internal/modules/notifier"
	"grapvid/internal/modules/resolver"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTikTokCmd(opts *options, logger *zap.Logger) *cobra.Command {
	var infoOnly bool

	cmd := &cobra.Command{
		Use:   "tiktok <url>",
		Short: "Resolve a TikTok video and download it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.wire(logger)
			if err != nil {
				return err
			}

			r := resolver.NewSingleStep(d.tiktok, opts.trigger(d, logger), notifier.NewLogger(logger), logger)
			if err := r.Submit(cmd.Context(), args[0]); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printMedia(out, r.State().Media)
			if infoOnly {
				return nil
			}

			link, err := r.Download(cmd.Context())
			if err != nil {
				return err
			}
			opts.report(out, d, link)
			return nil
		},
	}

	cmd.Flags().BoolVar(&infoOnly, "info-only", false, "Show the resolved media without downloading it")
	return cmd
}

func printMedia(w io.Writer, media *models.MediaInfo) {
	if media == nil {
		return
	}
	fmt.Fprintf(w, "Title:     %s\n", media.Title)
	fmt.Fprintf(w, "Thumbnail: %s\n", media.ThumbnailURL)
}

func printLink(w io.Writer, link models.Link) {
	fmt.Fprintf(w, "%s\t%s\n", link.Href, link.Filename)
}
