package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"grapvid/internal/models"
	"grapvid/internal/modules/transport"

	"go.uber.org/zap"
)

const (
	tiktokInfoPath = "/api/tiktok-video-info"
	videoInfoPath  = "/api/video-info"
	downloadPath   = "/api/download"

	// Bodies are JSON metadata; anything larger is not a valid response.
	maxBodySize = 4 << 20
)

var (
	// ErrBackend matches every failed backend call.
	ErrBackend = errors.New("backend request failed")
	// ErrMalformedResponse marks a 2xx response whose body failed schema validation.
	ErrMalformedResponse = errors.New("malformed backend response")
)

// RequestError describes a failed call: transport failure, non-2xx status or bad body.
type RequestError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

func (e *RequestError) Is(target error) bool { return target == ErrBackend }

// Client talks to one resolver backend.
type Client struct {
	baseURL string
	http    transport.HTTPClient
	logger  *zap.Logger
}

// New creates a Client for the backend rooted at baseURL.
func New(baseURL string, httpClient transport.HTTPClient, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger.With(zap.String("backend", baseURL)),
	}
}

type infoRequest struct {
	URL string `json:"url"`
}

// TikTokInfo resolves a single playable media URL for videoURL.
func (c *Client) TikTokInfo(ctx context.Context, videoURL string) (*models.MediaInfo, error) {
	body, err := c.postJSON(ctx, tiktokInfoPath, infoRequest{URL: videoURL})
	if err != nil {
		return nil, err
	}
	info, err := models.DecodeMediaInfo(body)
	if err != nil {
		return nil, c.malformed(tiktokInfoPath, err)
	}
	return info, nil
}

// VideoInfo lists the format variants available for videoURL.
func (c *Client) VideoInfo(ctx context.Context, videoURL string) (*models.VideoInfo, error) {
	body, err := c.postJSON(ctx, videoInfoPath, infoRequest{URL: videoURL})
	if err != nil {
		return nil, err
	}
	info, err := models.DecodeVideoInfo(body)
	if err != nil {
		return nil, c.malformed(videoInfoPath, err)
	}
	return info, nil
}

// ResolveDownload asks the backend for a merged download of the two selected tracks.
func (c *Client) ResolveDownload(ctx context.Context, videoURL string, videoItag, audioItag models.Itag) (*models.ResolvedDownload, error) {
	query := "url=" + url.QueryEscape(videoURL) +
		"&videoItag=" + url.QueryEscape(string(videoItag)) +
		"&audioItag=" + url.QueryEscape(string(audioItag))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+downloadPath+"?"+query, nil)
	if err != nil {
		return nil, &RequestError{Endpoint: downloadPath, Err: err}
	}
	body, err := c.do(req, downloadPath)
	if err != nil {
		return nil, err
	}
	rd, err := models.DecodeResolvedDownload(body)
	if err != nil {
		return nil, c.malformed(downloadPath, err)
	}
	return rd, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &RequestError{Endpoint: path, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, &RequestError{Endpoint: path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path)
}

func (c *Client) do(req *http.Request, path string) ([]byte, error) {
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend call failed",
			zap.String("endpoint", path),
			zap.Error(err))
		return nil, &RequestError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &RequestError{Endpoint: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("read failed: %w", err)}
	}

	c.logger.Debug("backend call finished",
		zap.String("method", req.Method),
		zap.String("endpoint", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{Endpoint: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("bad status: %s", http.StatusText(resp.StatusCode))}
	}
	return body, nil
}

func (c *Client) malformed(path string, err error) error {
	c.logger.Warn("rejecting malformed backend response",
		zap.String("endpoint", path),
		zap.Error(err))
	return &RequestError{Endpoint: path, Err: fmt.Errorf("%w: %w", ErrMalformedResponse, err)}
}
