package resolver

import (
	"context"
	"fmt"
	"sync"

	"grapvid/internal/models"
	"grapvid/internal/modules/downloader"
	"grapvid/internal/modules/notifier"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MediaSource resolves a page URL into a single playable media URL.
type MediaSource interface {
	TikTokInfo(ctx context.Context, videoURL string) (*models.MediaInfo, error)
}

// SingleStep drives the one-request flow: submit a URL, get one media URL, download it.
type SingleStep struct {
	mu        sync.Mutex
	state     SingleState
	source    MediaSource
	trigger   downloader.Trigger
	notify    notifier.Notifier
	logger    *zap.Logger
	extension string
}

// NewSingleStep creates a SingleStep resolver in the Idle phase.
func NewSingleStep(source MediaSource, trigger downloader.Trigger, notify notifier.Notifier, logger *zap.Logger) *SingleStep {
	return &SingleStep{
		state:     SingleState{Phase: PhaseIdle},
		source:    source,
		trigger:   trigger,
		notify:    notify,
		logger:    logger,
		extension: "mp4",
	}
}

// State returns a snapshot of the current state.
func (r *SingleStep) State() SingleState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Submit fetches media info for rawURL. The previous media info is cleared
// before the request is sent and replaced wholesale by the response.
func (r *SingleStep) Submit(ctx context.Context, rawURL string) error {
	if err := ValidateURL(rawURL); err != nil {
		r.notify.NotifyFailure(msgInvalidURL)
		return err
	}

	r.mu.Lock()
	if !r.state.CanSubmit() {
		r.mu.Unlock()
		return ErrBusy
	}
	r.state = r.state.submitted(rawURL)
	r.mu.Unlock()

	logger := r.logger.With(zap.String("submission", uuid.NewString()), zap.String("url", rawURL))
	logger.Debug("fetching media info")

	info, err := r.source.TikTokInfo(ctx, rawURL)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.state = r.state.failed()
		logger.Warn("media info fetch failed", zap.Error(err))
		r.notify.NotifyFailure(msgFetchFailed)
		return fmt.Errorf("fetch media info: %w", err)
	}

	r.state = r.state.resolved(*info)
	logger.Info("media info resolved",
		zap.String("title", info.Title),
		zap.Bool("has_media_url", info.VideoURL != ""))
	r.notify.NotifySuccess(msgTikTokFetched)
	return nil
}

// Download hands the resolved media to the trigger as <title>.mp4.
// It reports ErrNoMedia without creating a link when nothing usable is resolved.
func (r *SingleStep) Download(ctx context.Context) (models.Link, error) {
	r.mu.Lock()
	st := r.state
	if st.Media == nil || st.Media.VideoURL == "" {
		r.mu.Unlock()
		r.notify.NotifyFailure(msgNoMedia)
		return models.Link{}, ErrNoMedia
	}
	if st.Downloading {
		r.mu.Unlock()
		return models.Link{}, ErrBusy
	}
	r.state = st.downloading(true)
	r.mu.Unlock()

	link := models.Link{
		Href:     st.Media.VideoURL,
		Filename: st.Media.Title + "." + r.extension,
	}
	err := r.trigger.Trigger(ctx, link)

	r.mu.Lock()
	r.state = r.state.downloading(false)
	r.mu.Unlock()

	if err != nil {
		r.logger.Warn("download trigger failed", zap.String("href", link.Href), zap.Error(err))
		r.notify.NotifyFailure(msgDownloadFailed)
		return models.Link{}, fmt.Errorf("download %s: %w", link.Filename, err)
	}

	r.notify.NotifySuccess(msgDownloadStart)
	return link, nil
}
