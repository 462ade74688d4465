package filereader

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

// FileReader implements pipeline.Stage. It emits the URLs listed in a file,
// one per line. Blank lines, lines starting with '#' and a leading header
// line that is not a URL are skipped. A path of "-" reads standard input.
type FileReader struct {
	path  string
	stdin io.Reader
}

// New creates a new FileReader
func New(path string) *FileReader {
	return &FileReader{path: path, stdin: os.Stdin}
}

func (fr *FileReader) open() (io.ReadCloser, error) {
	if fr.path == "-" {
		return io.NopCloser(fr.stdin), nil
	}
	return os.Open(fr.path)
}

func (fr *FileReader) Execute(ctx context.Context, input <-chan interface{}, output chan<- interface{}, logger *zap.Logger) error {
	file, err := fr.open()
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	firstLine := true
	urlCount := 0

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			logger.Warn("file reading interrupted", zap.Error(ctx.Err()))
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		isHeader := firstLine && !strings.Contains(line, "://")
		firstLine = false
		if line == "" || strings.HasPrefix(line, "#") || isHeader {
			continue
		}

		logger.Debug("read URL", zap.String("url", line))
		select {
		case output <- line:
			urlCount++
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	logger.Info("finished reading URLs", zap.Int("total_urls", urlCount))
	return nil
}
