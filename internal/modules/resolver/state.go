package resolver

import (
	"grapvid/internal/models"
)

// Phase is the position of a resolver in its state machine.
type Phase string

const (
	// PhaseIdle means nothing is loaded and a submission is allowed.
	PhaseIdle Phase = "idle"

	// PhaseFetching means an info request is outstanding.
	PhaseFetching Phase = "fetching"

	// PhaseResolved means single-step media info is loaded.
	PhaseResolved Phase = "resolved"

	// PhaseInfoReady means two-step format info is loaded.
	PhaseInfoReady Phase = "info_ready"

	// PhaseDownloading means a download resolution request is outstanding.
	PhaseDownloading Phase = "downloading"
)

// IsBusy returns true if a request is outstanding and the triggering control is disabled.
func (p Phase) IsBusy() bool {
	return p == PhaseFetching || p == PhaseDownloading
}

// SingleState is the state of a SingleStep resolver. Values are never
// mutated in place; every transition returns a new value.
type SingleState struct {
	Phase       Phase             `json:"phase"`
	URL         string            `json:"url"`
	Media       *models.MediaInfo `json:"media,omitempty"`
	Downloading bool              `json:"downloading"`
}

// CanSubmit reports whether the submit control is enabled.
func (s SingleState) CanSubmit() bool { return s.Phase != PhaseFetching }

// CanDownload reports whether the download control is enabled.
func (s SingleState) CanDownload() bool { return s.Phase == PhaseResolved && !s.Downloading }

func (s SingleState) submitted(url string) SingleState {
	return SingleState{Phase: PhaseFetching, URL: url}
}

func (s SingleState) resolved(media models.MediaInfo) SingleState {
	return SingleState{Phase: PhaseResolved, URL: s.URL, Media: &media}
}

func (s SingleState) failed() SingleState {
	return SingleState{Phase: PhaseIdle, URL: s.URL}
}

func (s SingleState) downloading(on bool) SingleState {
	next := s
	next.Downloading = on
	return next
}

// TwoState is the state of a TwoStep resolver.
type TwoState struct {
	Phase     Phase             `json:"phase"`
	URL       string            `json:"url"`
	Info      *models.VideoInfo `json:"info,omitempty"`
	VideoItag models.Itag       `json:"video_itag,omitempty"`
	AudioItag models.Itag       `json:"audio_itag,omitempty"`
}

// CanSubmit reports whether the submit control is enabled.
func (s TwoState) CanSubmit() bool { return !s.Phase.IsBusy() }

// CanDownload reports whether the download control is enabled.
func (s TwoState) CanDownload() bool {
	return s.Phase == PhaseInfoReady && s.VideoItag != "" && s.AudioItag != ""
}

// VideoFormats returns the options for the video selector.
func (s TwoState) VideoFormats() []models.FormatOption {
	if s.Info == nil {
		return nil
	}
	return VideoFormats(s.Info.Formats)
}

// AudioFormats returns the options for the audio selector.
func (s TwoState) AudioFormats() []models.FormatOption {
	if s.Info == nil {
		return nil
	}
	return AudioFormats(s.Info.Formats)
}

func (s TwoState) submitted(url string) TwoState {
	return TwoState{Phase: PhaseFetching, URL: url}
}

func (s TwoState) infoReady(info models.VideoInfo) TwoState {
	return TwoState{Phase: PhaseInfoReady, URL: s.URL, Info: &info}
}

func (s TwoState) failed() TwoState {
	return TwoState{Phase: PhaseIdle, URL: s.URL}
}

func (s TwoState) withVideo(itag models.Itag) TwoState {
	next := s
	next.VideoItag = itag
	return next
}

func (s TwoState) withAudio(itag models.Itag) TwoState {
	next := s
	next.AudioItag = itag
	return next
}

func (s TwoState) withPhase(p Phase) TwoState {
	next := s
	next.Phase = p
	return next
}

// VideoFormats keeps every format that carries video, muxed or not.
func VideoFormats(formats []models.FormatOption) []models.FormatOption {
	return filterFormats(formats, isVideo)
}

// AudioFormats keeps audio-only formats.
func AudioFormats(formats []models.FormatOption) []models.FormatOption {
	return filterFormats(formats, isAudioOnly)
}

func isVideo(f models.FormatOption) bool { return f.HasVideo }

func isAudioOnly(f models.FormatOption) bool { return f.HasAudio && !f.HasVideo }

func filterFormats(formats []models.FormatOption, keep func(models.FormatOption) bool) []models.FormatOption {
	var out []models.FormatOption
	for _, f := range formats {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}
