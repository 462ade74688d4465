package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformed is returned when a backend payload does not match the expected schema.
var ErrMalformed = errors.New("malformed payload")

// Itag is an opaque, backend-assigned format identifier.
// The backend may send it as a JSON string or a JSON number.
type Itag string

func (i *Itag) UnmarshalJSON(data []byte) error {
	s, err := flexString(data)
	if err != nil {
		return fmt.Errorf("itag: %w", err)
	}
	*i = Itag(s)
	return nil
}

// MediaInfo is the single-step info response.
type MediaInfo struct {
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnailUrl"`
	VideoURL     string `json:"video_url"`
}

// FormatOption is one selectable variant in a VideoInfo.
type FormatOption struct {
	Itag     Itag   `json:"itag"`
	Quality  string `json:"quality"`
	Filesize string `json:"filesize,omitempty"`
	HasVideo bool   `json:"has_video"`
	HasAudio bool   `json:"has_audio"`
}

func (f *FormatOption) UnmarshalJSON(data []byte) error {
	var raw struct {
		Itag     Itag            `json:"itag"`
		Quality  string          `json:"quality"`
		Filesize json.RawMessage `json:"filesize"`
		HasVideo bool            `json:"has_video"`
		HasAudio bool            `json:"has_audio"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	size, err := flexString(raw.Filesize)
	if err != nil {
		return fmt.Errorf("filesize: %w", err)
	}
	*f = FormatOption{
		Itag:     raw.Itag,
		Quality:  raw.Quality,
		Filesize: size,
		HasVideo: raw.HasVideo,
		HasAudio: raw.HasAudio,
	}
	return nil
}

// Label renders the option the way selectors display it.
func (f FormatOption) Label() string {
	size := f.Filesize
	if size == "" {
		size = "Unknown size"
	}
	return fmt.Sprintf("%s (%s)", f.Quality, size)
}

// VideoInfo is the two-step info response.
type VideoInfo struct {
	Title        string         `json:"title"`
	ThumbnailURL string         `json:"thumbnailUrl"`
	Formats      []FormatOption `json:"formats"`
}

// Find returns the format with the given itag.
func (v *VideoInfo) Find(itag Itag) (FormatOption, bool) {
	for _, f := range v.Formats {
		if f.Itag == itag {
			return f, true
		}
	}
	return FormatOption{}, false
}

// ResolvedDownload is the response of the download resolution call.
type ResolvedDownload struct {
	VideoURL   string `json:"video_url"`
	VideoTitle string `json:"video_title"`
}

// Link is a synthesized download: where to fetch and what to call the file.
type Link struct {
	Href     string `json:"href"`
	Filename string `json:"filename"`
}

// Content is a batch item passed between pipeline stages.
type Content struct {
	URL   string
	Link  Link
	Error error
}

// DecodeMediaInfo parses a single-step info body. A missing video_url is
// accepted here; the download precondition reports it.
func DecodeMediaInfo(body []byte) (*MediaInfo, error) {
	var info MediaInfo
	if err := decodeObject(body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DecodeVideoInfo parses a two-step info body and rejects payloads without a
// formats list or with empty or duplicate itags.
func DecodeVideoInfo(body []byte) (*VideoInfo, error) {
	var raw struct {
		VideoInfo
		Formats *[]FormatOption `json:"formats"`
	}
	if err := decodeObject(body, &raw); err != nil {
		return nil, err
	}
	if raw.Formats == nil {
		return nil, fmt.Errorf("%w: missing formats", ErrMalformed)
	}

	info := raw.VideoInfo
	info.Formats = *raw.Formats
	seen := make(map[Itag]struct{}, len(info.Formats))
	for i, f := range info.Formats {
		if f.Itag == "" {
			return nil, fmt.Errorf("%w: format %d has no itag", ErrMalformed, i)
		}
		if _, dup := seen[f.Itag]; dup {
			return nil, fmt.Errorf("%w: duplicate itag %q", ErrMalformed, f.Itag)
		}
		seen[f.Itag] = struct{}{}
	}
	return &info, nil
}

// DecodeResolvedDownload parses the download resolution body; video_url is required.
func DecodeResolvedDownload(body []byte) (*ResolvedDownload, error) {
	var rd ResolvedDownload
	if err := decodeObject(body, &rd); err != nil {
		return nil, err
	}
	if rd.VideoURL == "" {
		return nil, fmt.Errorf("%w: missing video_url", ErrMalformed)
	}
	return &rd, nil
}

func decodeObject(body []byte, v any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("%w: expected JSON object", ErrMalformed)
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// flexString accepts a JSON string, number or null.
func flexString(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return "", fmt.Errorf("expected string or number, got %s", data)
		}
		if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}
