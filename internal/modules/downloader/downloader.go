package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"grapvid/internal/models"
	"grapvid/internal/modules/transport"

	"go.uber.org/zap"
)

// Trigger starts the download of a resolved link.
type Trigger interface {
	Trigger(ctx context.Context, link models.Link) error
}

// TriggerFunc adapts a function to Trigger.
type TriggerFunc func(ctx context.Context, link models.Link) error

func (f TriggerFunc) Trigger(ctx context.Context, link models.Link) error { return f(ctx, link) }

// Handoff leaves fetching to whoever receives the link (a browser, a script
// reading stdout). It only logs what was handed over.
type Handoff struct {
	logger *zap.Logger
}

// NewHandoff creates a Handoff trigger.
func NewHandoff(logger *zap.Logger) *Handoff {
	return &Handoff{logger: logger}
}

func (h *Handoff) Trigger(ctx context.Context, link models.Link) error {
	if link.Href == "" {
		return fmt.Errorf("empty link")
	}
	h.logger.Info("download link handed off",
		zap.String("href", link.Href),
		zap.String("filename", link.Filename))
	return nil
}

// Stream is an open media response.
type Stream struct {
	Body io.ReadCloser
	Size int64 // -1 if unknown
}

// Fetch opens the media behind href. The caller closes the body.
func Fetch(ctx context.Context, client transport.HTTPClient, href string) (*Stream, error) {
	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		return nil, fmt.Errorf("unsupported link %q: not an http(s) URL", href)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("bad status: %d", resp.StatusCode)
	}

	return &Stream{Body: resp.Body, Size: resp.ContentLength}, nil
}
