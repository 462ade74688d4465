package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Stage defines the interface for a pipeline stage.
// Each stage processes input from an input channel and sends results to an output channel.
type Stage interface {
	Execute(ctx context.Context, input <-chan interface{}, output chan<- interface{}, logger *zap.Logger) error
}

// Pipeline manages a sequence of named stages that process data in a chain.
type Pipeline struct {
	stages  []namedStage // List of stages in the pipeline
	logger  *zap.Logger  // Logger for pipeline-wide logging
	bufSize int          // Capacity of the channels between stages
}

type namedStage struct {
	name  string
	stage Stage
}

// New creates a new Pipeline instance with the given logger.
//
// Parameters:
//   - logger: Logger for logging pipeline events.
//
// Returns:
//   - A pointer to a new Pipeline instance.
func New(logger *zap.Logger) *Pipeline {
	return &Pipeline{
		logger:  logger,
		bufSize: 50,
	}
}

// AddStage appends a stage to the pipeline's sequence under the given name.
// The name is attached to the stage's logger and to any error it returns.
func (p *Pipeline) AddStage(name string, stage Stage) {
	p.stages = append(p.stages, namedStage{name: name, stage: stage})
}

// Run executes the pipeline with the given input channel and drains the last
// stage's output.
//
// The pipeline chains stages such that each stage's output becomes the next stage's input.
// The first stage uses the provided input channel, and subsequent stages use channels created internally.
// A stage that returns early has its remaining input drained so upstream stages never block.
//
// Parameters:
//   - ctx: Context for cancellation.
//   - input: Initial input channel for the first stage.
//
// Returns:
//   - ctx.Err() if canceled, otherwise the joined errors of all failed stages.
func (p *Pipeline) Run(ctx context.Context, input <-chan interface{}) error {
	if len(p.stages) == 0 {
		p.logger.Warn("no stages in pipeline")
		return nil
	}

	channels := make([]chan interface{}, len(p.stages))
	for i := range channels {
		channels[i] = make(chan interface{}, p.bufSize)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	wg.Add(len(p.stages))

	for i, ns := range p.stages {
		inChan := input
		if i > 0 {
			inChan = channels[i-1]
		}
		outChan := channels[i]

		go func(ns namedStage, in <-chan interface{}, out chan<- interface{}) {
			defer wg.Done()
			defer close(out)
			logger := p.logger.With(zap.String("stage", ns.name))
			err := ns.stage.Execute(ctx, in, out, logger)
			drain(ctx, in)
			if err != nil {
				logger.Error("stage execution failed", zap.Error(err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("stage %s: %w", ns.name, err))
				mu.Unlock()
			}
		}(ns, inChan, outChan)
	}

	done := make(chan struct{})
	go func() {
		drain(ctx, channels[len(channels)-1])
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if err := errors.Join(errs...); err != nil {
			p.logger.Warn("pipeline completed with errors", zap.Error(err))
			return err
		}
		p.logger.Info("pipeline completed successfully")
		return nil
	case <-ctx.Done():
		p.logger.Info("pipeline canceled", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

func drain(ctx context.Context, ch <-chan interface{}) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
