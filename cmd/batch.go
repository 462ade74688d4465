package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"

	"grapvid/internal/models"
	"grapvid/internal/modules/filereader"
	"grapvid/internal/modules/notifier"
	"grapvid/internal/modules/persistence"
	"grapvid/internal/modules/pipeline"
	"grapvid/internal/modules/resolver"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newBatchCmd(opts *options, logger *zap.Logger) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Resolve and download every TikTok URL listed in a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.wire(logger)
			if err != nil {
				return err
			}

			logger.Info("starting URL processing", zap.String("path", path))

			p := pipeline.New(logger)
			p.AddStage("read", filereader.New(path))
			p.AddStage("resolve", resolver.NewSingleStepStage(d.tiktok, notifier.NewLogger(logger)))
			if opts.printLink {
				p.AddStage("print", &linkPrinter{out: cmd.OutOrStdout()})
			} else {
				p.AddStage("persist", d.persister)
			}

			input := make(chan interface{})
			close(input)
			return p.Run(cmd.Context(), input)
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "", "File with one URL per line, - for stdin")
	cobra.CheckErr(cmd.MarkFlagRequired("file"))
	return cmd
}

// linkPrinter is the final batch stage when links are printed instead of saved.
type linkPrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func (lp *linkPrinter) Execute(ctx context.Context, input <-chan interface{}, output chan<- interface{}, logger *zap.Logger) error {
	total, failed := 0, 0
	for item := range input {
		c, ok := item.(models.Content)
		if !ok {
			continue
		}
		total++
		lp.mu.Lock()
		if c.Error != nil {
			failed++
			fmt.Fprintf(lp.out, "# %s: %v\n", c.URL, c.Error)
		} else {
			printLink(lp.out, c.Link)
		}
		lp.mu.Unlock()
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d failed", persistence.ErrIncomplete, failed, total)
	}
	return nil
}
