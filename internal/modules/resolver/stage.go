package resolver

import (
	"context"

	"grapvid/internal/models"
	"grapvid/internal/modules/downloader"
	"grapvid/internal/modules/notifier"

	"go.uber.org/zap"
)

// SingleStepStage implements pipeline.Stage. Each URL string on the input
// runs through its own SingleStep resolver, and the resolved link is passed
// downstream as models.Content for a later stage to save.
type SingleStepStage struct {
	source MediaSource
	notify notifier.Notifier
}

// NewSingleStepStage creates a stage that resolves URLs through source.
func NewSingleStepStage(source MediaSource, notify notifier.Notifier) *SingleStepStage {
	return &SingleStepStage{source: source, notify: notify}
}

func (s *SingleStepStage) Execute(ctx context.Context, input <-chan interface{}, output chan<- interface{}, logger *zap.Logger) error {
	resolved := 0
	failed := 0

	for item := range input {
		select {
		case <-ctx.Done():
			logger.Warn("resolving interrupted", zap.Error(ctx.Err()))
			return ctx.Err()
		default:
		}

		rawURL, ok := item.(string)
		if !ok {
			logger.Warn("invalid input type, expected string", zap.Any("type", item))
			continue
		}

		content := s.resolve(ctx, rawURL, logger)
		if content.Error != nil {
			failed++
		} else {
			resolved++
		}

		select {
		case output <- content:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	logger.Info("resolve statistics",
		zap.Int("resolved", resolved),
		zap.Int("failed", failed))
	return nil
}

func (s *SingleStepStage) resolve(ctx context.Context, rawURL string, logger *zap.Logger) models.Content {
	// The link is only recorded here; the persistence stage fetches it.
	passOn := downloader.TriggerFunc(func(context.Context, models.Link) error { return nil })
	r := NewSingleStep(s.source, passOn, s.notify, logger)

	if err := r.Submit(ctx, rawURL); err != nil {
		return models.Content{URL: rawURL, Error: err}
	}
	link, err := r.Download(ctx)
	if err != nil {
		return models.Content{URL: rawURL, Error: err}
	}
	return models.Content{URL: rawURL, Link: link}
}
