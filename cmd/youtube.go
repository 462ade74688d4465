package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"grapvid/internal/models"
	"grapvid/internal/modules/notifier"
	"grapvid/internal/modules/resolver"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newYouTubeCmd(opts *options, logger *zap.Logger) *cobra.Command {
	var videoItag, audioItag string

	cmd := &cobra.Command{
		Use:   "youtube <url>",
		Short: "List YouTube formats, or download a chosen video and audio pair",
		Long: `Without --video-itag and --audio-itag the available formats are listed.
With both, the backend merges the two tracks and the result is downloaded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.wire(logger)
			if err != nil {
				return err
			}

			r := resolver.NewTwoStep(d.youtube, opts.trigger(d, logger), notifier.NewLogger(logger), logger)
			if err := r.Submit(cmd.Context(), args[0]); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			st := r.State()
			fmt.Fprintf(out, "Title:     %s\n", st.Info.Title)
			fmt.Fprintf(out, "Thumbnail: %s\n", st.Info.ThumbnailURL)
			printFormats(out, "Video formats", st.VideoFormats())
			printFormats(out, "Audio formats", st.AudioFormats())

			if videoItag == "" && audioItag == "" {
				return nil
			}
			if err := r.SelectVideo(models.Itag(videoItag)); err != nil {
				return err
			}
			if err := r.SelectAudio(models.Itag(audioItag)); err != nil {
				return err
			}

			link, err := r.Download(cmd.Context())
			if err != nil {
				return err
			}
			opts.report(out, d, link)
			return nil
		},
	}

	cmd.Flags().StringVar(&videoItag, "video-itag", "", "itag of the video track to download")
	cmd.Flags().StringVar(&audioItag, "audio-itag", "", "itag of the audio-only track to download")
	return cmd
}

func printFormats(w io.Writer, heading string, formats []models.FormatOption) {
	fmt.Fprintf(w, "\n%s:\n", heading)
	if len(formats) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range formats {
		fmt.Fprintf(tw, "  %s\t%s\n", f.Itag, f.Label())
	}
	tw.Flush()
}
