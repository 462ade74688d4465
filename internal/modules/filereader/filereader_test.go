package filereader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// TestFileReader_Execute tests the Execute method of FileReader.
func TestFileReader_Execute(t *testing.T) {
	logger := zaptest.NewLogger(t)

	tests := []struct {
		name         string
		content      string
		missing      bool
		expectedURLs []string
		expectErr    bool
	}{
		{
			name:         "with header",
			content:      "Urls\nhttps://tiktok.com/@x/video/1\nhttps://tiktok.com/@x/video/2\n",
			expectedURLs: []string{"https://tiktok.com/@x/video/1", "https://tiktok.com/@x/video/2"},
		},
		{
			name:         "without header",
			content:      "https://tiktok.com/@x/video/1\n",
			expectedURLs: []string{"https://tiktok.com/@x/video/1"},
		},
		{
			name:         "comments and blanks",
			content:      "# saved for later\n\n  https://tiktok.com/@x/video/3  \n",
			expectedURLs: []string{"https://tiktok.com/@x/video/3"},
		},
		{
			name:         "header only",
			content:      "Urls\n",
			expectedURLs: []string{},
		},
		{
			name:      "missing file",
			missing:   true,
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filename := filepath.Join(t.TempDir(), "urls.txt")
			if !tt.missing {
				if err := os.WriteFile(filename, []byte(tt.content), 0644); err != nil {
					t.Fatalf("failed to write temp file: %v", err)
				}
			}

			fr := New(filename)
			outputChan := make(chan interface{}, 10)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			err := fr.Execute(ctx, nil, outputChan, logger)
			close(outputChan)

			if tt.expectErr && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			urls := []string{}
			for url := range outputChan {
				urls = append(urls, url.(string))
			}
			if len(urls) != len(tt.expectedURLs) {
				t.Fatalf("expected %d URLs, got %d: %v", len(tt.expectedURLs), len(urls), urls)
			}
			for i, url := range urls {
				if url != tt.expectedURLs[i] {
					t.Errorf("expected URL %s at index %d, got %s", tt.expectedURLs[i], i, url)
				}
			}
		})
	}
}

func TestFileReader_Stdin(t *testing.T) {
	logger := zaptest.NewLogger(t)
	fr := New("-")
	fr.stdin = strings.NewReader("https://tiktok.com/@x/video/9\n")

	out := make(chan interface{}, 1)
	if err := fr.Execute(context.Background(), nil, out, logger); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(out)

	if got := <-out; got != "https://tiktok.com/@x/video/9" {
		t.Errorf("unexpected URL %v", got)
	}
}
