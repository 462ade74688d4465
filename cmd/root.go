package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"grapvid/internal/models"
	"grapvid/internal/modules/backend"
	"grapvid/internal/modules/downloader"
	"grapvid/internal/modules/persistence"
	"grapvid/internal/modules/transport"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	defaultBackend = "http://localhost:5001"
	defaultOutDir  = "./downloads"
)

// options holds the persistent flags shared by every command.
type options struct {
	backendURL       string
	tiktokBackendURL string
	outDir           string
	timeout          time.Duration
	useTLSClient     bool
	printLink        bool
}

// Execute builds the command tree and runs it with ctx.
func Execute(ctx context.Context, logger *zap.Logger) {
	if err := newRootCmd(logger).ExecuteContext(ctx); err != nil {
		logger.Error("execution failed", zap.Error(err))
		os.Exit(1)
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "grapvid",
		Short: "Resolve and download TikTok and YouTube videos through a resolver backend",
		Long: `grapvid sends a video page URL to a resolver backend, shows the media it
resolves, and downloads it. TikTok URLs resolve in one step; YouTube URLs
list their formats so a video and an audio track can be picked and merged.`,
		SilenceUsage: true,
	}

	opts.bind(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newTikTokCmd(opts, logger),
		newYouTubeCmd(opts, logger),
		newBatchCmd(opts, logger),
		newServeCmd(opts, logger),
	)
	return rootCmd
}

// bind registers the shared flags, each defaulting to its GRAPVID_* environment variable.
func (o *options) bind(flags *pflag.FlagSet) {
	flags.StringVar(&o.backendURL, "backend", envOr("GRAPVID_BACKEND", defaultBackend), "Base URL of the resolver backend")
	flags.StringVar(&o.tiktokBackendURL, "tiktok-backend", envOr("GRAPVID_TIKTOK_BACKEND", ""), "Base URL for TikTok lookups (defaults to --backend)")
	flags.StringVarP(&o.outDir, "out", "o", envOr("GRAPVID_OUT", defaultOutDir), "Directory downloads are saved to")
	flags.DurationVar(&o.timeout, "timeout", 0, "Per-request timeout, 0 for none")
	flags.BoolVar(&o.useTLSClient, "tls-client", false, "Use a browser TLS fingerprint for outbound requests")
	flags.BoolVar(&o.printLink, "print-link", false, "Print the resolved link instead of downloading it")
}

// deps are the collaborators every command wires the same way.
type deps struct {
	http      transport.HTTPClient
	youtube   *backend.Client
	tiktok    *backend.Client
	persister *persistence.FilePersister
}

func (o *options) wire(logger *zap.Logger) (*deps, error) {
	httpClient, err := transport.New(o.useTLSClient, o.timeout)
	if err != nil {
		return nil, err
	}
	tiktokURL := o.tiktokBackendURL
	if tiktokURL == "" {
		tiktokURL = o.backendURL
	}
	return &deps{
		http:      httpClient,
		youtube:   backend.New(o.backendURL, httpClient, logger),
		tiktok:    backend.New(tiktokURL, httpClient, logger),
		persister: persistence.New(httpClient, logger, o.outDir),
	}, nil
}

// trigger picks where a resolved link goes: printed for the caller, or saved to --out.
func (o *options) trigger(d *deps, logger *zap.Logger) downloader.Trigger {
	if o.printLink {
		return downloader.NewHandoff(logger)
	}
	return d.persister
}

// report prints what happened to a downloaded link.
func (o *options) report(w io.Writer, d *deps, link models.Link) {
	if o.printLink {
		printLink(w, link)
		return
	}
	fmt.Fprintf(w, "Saved %s\n", d.persister.Path(link.Filename))
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
