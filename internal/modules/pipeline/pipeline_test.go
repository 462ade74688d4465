package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type mockStage struct {
	process func(ctx context.Context, input interface{}) (interface{}, error)
}

func (m *mockStage) Execute(ctx context.Context, input <-chan interface{}, output chan<- interface{}, logger *zap.Logger) error {
	for item := range input {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			result, err := m.process(ctx, item)
			if err != nil {
				logger.Warn("mock stage process failed", zap.Error(err))
				continue
			}
			output <- result
		}
	}
	return nil
}

type sinkStage struct {
	mu    sync.Mutex
	items []interface{}
}

func (s *sinkStage) Execute(ctx context.Context, input <-chan interface{}, output chan<- interface{}, logger *zap.Logger) error {
	for item := range input {
		s.mu.Lock()
		s.items = append(s.items, item)
		s.mu.Unlock()
	}
	return nil
}

type failingStage struct{}

func (failingStage) Execute(ctx context.Context, input <-chan interface{}, output chan<- interface{}, logger *zap.Logger) error {
	return errors.New("cannot start")
}

func TestPipeline_Execute(t *testing.T) {
	logger := zaptest.NewLogger(t)
	p := New(logger)

	// Stage 1: Multiply by 2
	p.AddStage("double", &mockStage{
		process: func(ctx context.Context, input interface{}) (interface{}, error) {
			if n, ok := input.(int); ok {
				return n * 2, nil
			}
			return nil, errors.New("not an int")
		},
	})

	// Stage 2: Add 3
	p.AddStage("add", &mockStage{
		process: func(ctx context.Context, input interface{}) (interface{}, error) {
			return input.(int) + 3, nil
		},
	})

	sink := &sinkStage{}
	p.AddStage("sink", sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inputChan := make(chan interface{}, 3)
	inputChan <- 5
	inputChan <- "skip"
	inputChan <- 10
	close(inputChan)

	if err := p.Run(ctx, inputChan); err != nil {
		t.Fatalf("pipeline execution failed: %v", err)
	}

	if len(sink.items) != 2 || sink.items[0] != 13 || sink.items[1] != 23 {
		t.Errorf("expected [13 23], got %v", sink.items)
	}
}

func TestPipeline_StageError(t *testing.T) {
	logger := zaptest.NewLogger(t)
	p := New(logger)
	p.AddStage("broken", failingStage{})
	p.AddStage("sink", &sinkStage{})

	inputChan := make(chan interface{}, 2)
	inputChan <- 1
	inputChan <- 2
	close(inputChan)

	err := p.Run(context.Background(), inputChan)
	if err == nil {
		t.Fatal("expected stage error")
	}
	if got := err.Error(); got != "stage broken: cannot start" {
		t.Errorf("unexpected error text %q", got)
	}
}

func TestPipeline_Empty(t *testing.T) {
	p := New(zaptest.NewLogger(t))
	if err := p.Run(context.Background(), nil); err != nil {
		t.Errorf("expected nil for empty pipeline, got %v", err)
	}
}

func TestPipeline_Cancel(t *testing.T) {
	logger := zaptest.NewLogger(t)
	p := New(logger)

	p.AddStage("slow", &mockStage{
		process: func(ctx context.Context, input interface{}) (interface{}, error) {
			time.Sleep(100 * time.Millisecond) // Simulate work
			return input, nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	inputChan := make(chan interface{}, 1)
	inputChan <- 1

	go func() {
		time.Sleep(10 * time.Millisecond) // Let pipeline start
		cancel()
	}()

	err := p.Run(ctx, inputChan)
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	close(inputChan)
}
