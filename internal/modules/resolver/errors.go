package resolver

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrValidation matches every user input or precondition error.
	ErrValidation = errors.New("validation failed")

	ErrInvalidURL          = fmt.Errorf("%w: not a valid URL", ErrValidation)
	ErrNoMedia             = fmt.Errorf("%w: no video URL found", ErrValidation)
	ErrSelectionIncomplete = fmt.Errorf("%w: both a video and an audio format must be selected", ErrValidation)
	ErrUnknownFormat       = fmt.Errorf("%w: format not offered", ErrValidation)
	ErrNoInfo              = fmt.Errorf("%w: no video information loaded", ErrValidation)

	// ErrBusy is returned when the control for an action is disabled because
	// a request for it is still outstanding.
	ErrBusy = errors.New("request already in progress")
)

// Notification texts.
const (
	msgTikTokFetched  = "TikTok video information fetched successfully!"
	msgVideoFetched   = "Video information fetched successfully!"
	msgFetchFailed    = "Failed to fetch video info. Please try again."
	msgNoMedia        = "No video URL found."
	msgSelectBoth     = "Please select both a video and an audio format."
	msgDownloadStart  = "Download started!"
	msgDownloadFailed = "Failed to download the video. Please try again."
	msgInvalidURL     = "Please enter a valid URL."
)

// ValidateURL checks that raw is an absolute URL with a scheme and host.
func ValidateURL(raw string) error {
	if raw == "" {
		return ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}
