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

// FormatSource lists format variants and resolves a merged download for a selection.
type FormatSource interface {
	VideoInfo(ctx context.Context, videoURL string) (*models.VideoInfo, error)
	ResolveDownload(ctx context.Context, videoURL string, videoItag, audioItag models.Itag) (*models.ResolvedDownload, error)
}

// TwoStep drives the select-then-resolve flow: fetch formats, pick a video
// and an audio track, resolve a merged download URL, download it.
type TwoStep struct {
	mu      sync.Mutex
	state   TwoState
	source  FormatSource
	trigger downloader.Trigger
	notify  notifier.Notifier
	logger  *zap.Logger
}

// NewTwoStep creates a TwoStep resolver in the Idle phase.
func NewTwoStep(source FormatSource, trigger downloader.Trigger, notify notifier.Notifier, logger *zap.Logger) *TwoStep {
	return &TwoStep{
		state:   TwoState{Phase: PhaseIdle},
		source:  source,
		trigger: trigger,
		notify:  notify,
		logger:  logger,
	}
}

// State returns a snapshot of the current state.
func (r *TwoStep) State() TwoState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Submit fetches the format list for rawURL, clearing the previous info and
// both selections first.
func (r *TwoStep) Submit(ctx context.Context, rawURL string) error {
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
	logger.Debug("fetching video info")

	info, err := r.source.VideoInfo(ctx, rawURL)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.state = r.state.failed()
		logger.Warn("video info fetch failed", zap.Error(err))
		r.notify.NotifyFailure(msgFetchFailed)
		return fmt.Errorf("fetch video info: %w", err)
	}

	r.state = r.state.infoReady(*info)
	logger.Info("video info ready",
		zap.String("title", info.Title),
		zap.Int("formats", len(info.Formats)),
		zap.Int("video_formats", len(VideoFormats(info.Formats))),
		zap.Int("audio_formats", len(AudioFormats(info.Formats))))
	r.notify.NotifySuccess(msgVideoFetched)
	return nil
}

// SelectVideo chooses the video track. An empty itag clears the selection.
func (r *TwoStep) SelectVideo(itag models.Itag) error {
	return r.selectFormat(itag, isVideo, TwoState.withVideo)
}

// SelectAudio chooses the audio-only track. An empty itag clears the selection.
func (r *TwoStep) SelectAudio(itag models.Itag) error {
	return r.selectFormat(itag, isAudioOnly, TwoState.withAudio)
}

func (r *TwoStep) selectFormat(itag models.Itag, allowed func(models.FormatOption) bool, apply func(TwoState, models.Itag) TwoState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state.Phase {
	case PhaseInfoReady:
	case PhaseDownloading, PhaseFetching:
		return ErrBusy
	default:
		return ErrNoInfo
	}

	if itag != "" {
		if f, ok := r.state.Info.Find(itag); !ok || !allowed(f) {
			return fmt.Errorf("%w: itag %q", ErrUnknownFormat, itag)
		}
	}
	r.state = apply(r.state, itag)
	return nil
}

// Download resolves the selected pair into a merged download and hands it to
// the trigger. The resolver returns to InfoReady afterwards, whatever the
// outcome, so another pair can be downloaded.
func (r *TwoStep) Download(ctx context.Context) (models.Link, error) {
	r.mu.Lock()
	st := r.state
	switch {
	case st.Phase.IsBusy():
		r.mu.Unlock()
		return models.Link{}, ErrBusy
	case st.VideoItag == "" || st.AudioItag == "":
		r.mu.Unlock()
		r.notify.NotifyFailure(msgSelectBoth)
		return models.Link{}, ErrSelectionIncomplete
	}
	r.state = st.withPhase(PhaseDownloading)
	r.mu.Unlock()

	logger := r.logger.With(
		zap.String("url", st.URL),
		zap.String("video_itag", string(st.VideoItag)),
		zap.String("audio_itag", string(st.AudioItag)))
	logger.Debug("resolving download")

	link, err := r.resolveAndTrigger(ctx, st)

	r.mu.Lock()
	r.state = r.state.withPhase(PhaseInfoReady)
	r.mu.Unlock()

	if err != nil {
		logger.Warn("download failed", zap.Error(err))
		r.notify.NotifyFailure(msgDownloadFailed)
		return models.Link{}, err
	}

	logger.Info("download started", zap.String("href", link.Href), zap.String("filename", link.Filename))
	r.notify.NotifySuccess(msgDownloadStart)
	return link, nil
}

func (r *TwoStep) resolveAndTrigger(ctx context.Context, st TwoState) (models.Link, error) {
	rd, err := r.source.ResolveDownload(ctx, st.URL, st.VideoItag, st.AudioItag)
	if err != nil {
		return models.Link{}, fmt.Errorf("resolve download: %w", err)
	}

	link := models.Link{Href: rd.VideoURL, Filename: rd.VideoTitle}
	if err := r.trigger.Trigger(ctx, link); err != nil {
		return models.Link{}, fmt.Errorf("download %s: %w", link.Filename, err)
	}
	return link, nil
}
