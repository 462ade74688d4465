package cmd

import (
	"grapvid/internal/modules/api"
	"grapvid/internal/modules/downloader"
	"grapvid/internal/modules/notifier"
	"grapvid/internal/modules/resolver"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// messageLimit bounds the notifications each resolver keeps for the state view.
const messageLimit = 20

func newServeCmd(opts *options, logger *zap.Logger) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a local JSON API that drives both resolvers",
		Long: `serve keeps one TikTok and one YouTube resolver in memory and exposes their
state and actions under /api/tiktok and /api/youtube. Download endpoints
return the resolved link; the page calling the API performs the download.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.wire(logger)
			if err != nil {
				return err
			}
			gin.SetMode(gin.ReleaseMode)

			handoff := downloader.NewHandoff(logger)
			notify := notifier.NewLogger(logger)
			tiktokMsgs := &notifier.Recorder{Limit: messageLimit}
			youtubeMsgs := &notifier.Recorder{Limit: messageLimit}

			srv := api.New(
				resolver.NewSingleStep(d.tiktok, handoff, notifier.Multi{notify, tiktokMsgs}, logger.Named("tiktok")),
				resolver.NewTwoStep(d.youtube, handoff, notifier.Multi{notify, youtubeMsgs}, logger.Named("youtube")),
				logger.Named("api"),
			).WithMessages(tiktokMsgs, youtubeMsgs)
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Address to listen on")
	return cmd
}
