package persistence

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"grapvid/internal/models"
	"grapvid/internal/modules/transport"

	"go.uber.org/zap/zaptest"
)

func newMediaServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.mp4":
			w.Write([]byte("test data"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestFilePersister_Execute(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ts := newMediaServer(t)

	tests := []struct {
		name        string
		contents    []models.Content
		expectFiles int
		expectErr   bool
	}{
		{
			name: "successful persistence",
			contents: []models.Content{
				{URL: "https://tiktok.com/@x/video/1", Link: models.Link{Href: ts.URL + "/ok.mp4", Filename: "Cat.mp4"}},
			},
			expectFiles: 1,
		},
		{
			name: "with error content",
			contents: []models.Content{
				{URL: "https://tiktok.com/@x/video/1", Error: fmt.Errorf("resolve failed")},
				{URL: "https://tiktok.com/@x/video/2", Link: models.Link{Href: ts.URL + "/ok.mp4", Filename: "Dog.mp4"}},
			},
			expectFiles: 1,
			expectErr:   true,
		},
		{
			name: "missing media",
			contents: []models.Content{
				{URL: "https://tiktok.com/@x/video/3", Link: models.Link{Href: ts.URL + "/gone.mp4", Filename: "Gone.mp4"}},
			},
			expectFiles: 0,
			expectErr:   true,
		},
		{
			name:        "empty content",
			contents:    []models.Content{},
			expectFiles: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			fp := New(transport.NewStdClient(0), logger, tmpDir)

			input := make(chan interface{}, len(tt.contents))
			for _, content := range tt.contents {
				input <- content
			}
			close(input)

			err := fp.Execute(context.Background(), input, nil, logger)
			if tt.expectErr && !errors.Is(err, ErrIncomplete) {
				t.Errorf("expected ErrIncomplete, got %v", err)
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			files, _ := filepath.Glob(filepath.Join(tmpDir, "*.mp4"))
			if len(files) != tt.expectFiles {
				t.Errorf("expected %d files, got %d", tt.expectFiles, len(files))
			}
		})
	}
}

func TestFilePersister_Trigger(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ts := newMediaServer(t)
	tmpDir := t.TempDir()
	fp := New(transport.NewStdClient(0), logger, tmpDir)

	err := fp.Trigger(context.Background(), models.Link{Href: ts.URL + "/ok.mp4", Filename: "a/b:c.mp4"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, want := fp.Path("a/b:c.mp4"), filepath.Join(tmpDir, "a_b_c.mp4"); got != want {
		t.Errorf("Path = %q, expected %q", got, want)
	}
	data, err := os.ReadFile(filepath.Join(tmpDir, "a_b_c.mp4"))
	if err != nil {
		t.Fatalf("expected sanitized file: %v", err)
	}
	if string(data) != "test data" {
		t.Errorf("unexpected file content %q", data)
	}
}

func TestFilePersister_Canceled(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ts := newMediaServer(t)
	tmpDir := t.TempDir()
	fp := New(transport.NewStdClient(0), logger, tmpDir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := fp.Trigger(ctx, models.Link{Href: ts.URL + "/ok.mp4", Filename: "x.mp4"}); err == nil {
		t.Fatal("expected error for canceled context")
	}
	files, _ := filepath.Glob(filepath.Join(tmpDir, "*"))
	if len(files) != 0 {
		t.Errorf("expected no files left behind, got %v", files)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"Cat.mp4", "Cat.mp4"},
		{"a/b\\c.mp4", "a_b_c.mp4"},
		{"  spaced   out  .mp4", "spaced out .mp4"},
		{"...", "video"},
		{"", "video"},
		{"what?.mp4", "what_.mp4"},
	}

	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.expected {
			t.Errorf("SanitizeFilename(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}
