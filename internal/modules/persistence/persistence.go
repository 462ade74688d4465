package persistence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"grapvid/internal/models"
	"grapvid/internal/modules/downloader"
	"grapvid/internal/modules/transport"

	"go.uber.org/zap"
)

// FilePersister implements both downloader.Trigger and pipeline.Stage: it streams
// resolved links into files under a download directory.
type FilePersister struct {
	downloadDir string               // Directory where files are saved
	client      transport.HTTPClient // Client used to fetch media
	logger      *zap.Logger
	progressGap time.Duration
}

const defaultDownloadDir = "./downloads" // Default directory for saving files

// ErrIncomplete is returned by Execute when at least one item was not saved.
var ErrIncomplete = errors.New("batch incomplete")

// New creates a new FilePersister.
//
// Parameters:
//   - client: HTTP client used to fetch the media.
//   - logger: Logger for progress and errors.
//   - downloadDir: Optional directory path. Uses defaultDownloadDir if not provided.
//
// Returns:
//   - A pointer to a new FilePersister instance.
func New(client transport.HTTPClient, logger *zap.Logger, downloadDir ...string) *FilePersister {
	dir := defaultDownloadDir
	if len(downloadDir) > 0 && downloadDir[0] != "" {
		dir = downloadDir[0]
	}
	return &FilePersister{
		downloadDir: dir,
		client:      client,
		logger:      logger,
		progressGap: 2 * time.Second,
	}
}

// Path returns where a file with the given name is written.
func (fp *FilePersister) Path(filename string) string {
	return filepath.Join(fp.downloadDir, SanitizeFilename(filename))
}

// Trigger downloads link.Href into the download directory as link.Filename.
func (fp *FilePersister) Trigger(ctx context.Context, link models.Link) error {
	_, err := fp.Save(ctx, link)
	return err
}

// Save downloads the link and returns the path of the written file.
// A partially written file is removed on failure.
func (fp *FilePersister) Save(ctx context.Context, link models.Link) (string, error) {
	if err := os.MkdirAll(fp.downloadDir, 0755); err != nil {
		return "", err
	}

	stream, err := downloader.Fetch(ctx, fp.client, link.Href)
	if err != nil {
		return "", err
	}
	defer stream.Body.Close()

	path := fp.Path(link.Filename)
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}

	start := time.Now()
	fp.logger.Debug("persisting file", zap.String("filepath", path), zap.Int64("size", stream.Size))

	pr := &progressReader{
		reader: stream.Body,
		total:  stream.Size,
		gap:    fp.progressGap,
		last:   start,
		logger: fp.logger.With(zap.String("file", filepath.Base(path))),
	}
	written, copyErr := io.Copy(out, readerWithContext(ctx, pr))
	closeErr := out.Close()

	if copyErr != nil || closeErr != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			fp.logger.Warn("failed to remove partial file", zap.String("filepath", path), zap.Error(rmErr))
		}
		if copyErr != nil {
			return "", fmt.Errorf("write %s: %w", path, copyErr)
		}
		return "", fmt.Errorf("close %s: %w", path, closeErr)
	}

	fp.logger.Info("file saved",
		zap.String("filepath", path),
		zap.Int64("bytes", written),
		zap.String("elapsed", models.FormatTime(int(time.Since(start).Seconds()))))
	return path, nil
}

// Execute saves every resolved item received on the input channel as part of the pipeline.
// Items that already carry an error are counted as failures and skipped.
func (fp *FilePersister) Execute(ctx context.Context, input <-chan interface{}, output chan<- interface{}, logger *zap.Logger) error {
	successCount := 0
	failCount := 0

	for item := range input {
		select {
		case <-ctx.Done():
			logger.Warn("persistence interrupted", zap.Error(ctx.Err()))
			return ctx.Err()
		default:
		}

		c, ok := item.(models.Content)
		if !ok {
			logger.Warn("invalid input type, expected Content", zap.Any("type", item))
			continue
		}
		if c.Error != nil {
			failCount++
			continue
		}

		path, err := fp.Save(ctx, c.Link)
		if err != nil {
			logger.Warn("persist failed",
				zap.String("url", c.URL),
				zap.String("href", c.Link.Href),
				zap.Error(err))
			failCount++
			continue
		}
		logger.Debug("persisted", zap.String("url", c.URL), zap.String("filepath", path))
		successCount++
	}

	logger.Info("persistence statistics",
		zap.Int("successful", successCount),
		zap.Int("failed", failCount))
	if failCount > 0 {
		return fmt.Errorf("%w: %d of %d failed", ErrIncomplete, failCount, successCount+failCount)
	}
	return nil
}

var (
	unsafeChars = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]+`)
	multiSpace  = regexp.MustCompile(`\s+`)
)

// SanitizeFilename makes a backend-supplied title safe to use as a file name.
func SanitizeFilename(name string) string {
	name = unsafeChars.ReplaceAllString(name, "_")
	name = multiSpace.ReplaceAllString(name, " ")
	name = strings.Trim(name, " ._")
	if name == "" {
		return "video"
	}
	return name
}

type progressReader struct {
	reader io.Reader
	total  int64
	read   int64
	gap    time.Duration
	last   time.Time
	logger *zap.Logger
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.reader.Read(b)
	p.read += int64(n)
	if time.Since(p.last) >= p.gap {
		p.last = time.Now()
		fields := []zap.Field{zap.Int64("downloaded", p.read)}
		if p.total > 0 {
			fields = append(fields, zap.Float64("percent", float64(p.read)/float64(p.total)*100))
		}
		p.logger.Info("download progress", fields...)
	}
	return n, err
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(b []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(b)
}
