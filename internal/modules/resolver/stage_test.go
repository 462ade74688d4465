package resolver

import (
	"context"
	"errors"
	"testing"

	"grapvid/internal/models"
	"grapvid/internal/modules/notifier"

	"go.uber.org/zap/zaptest"
)

func TestSingleStepStage_Execute(t *testing.T) {
	logger := zaptest.NewLogger(t)
	src := &fakeMediaSource{responses: []models.MediaInfo{
		{Title: "Cat", VideoURL: "https://cdn.example/cat.mp4"},
		{Title: "Empty"},
	}}
	stage := NewSingleStepStage(src, &notifier.Recorder{})

	input := make(chan interface{}, 4)
	input <- "https://tiktok.com/@x/video/1"
	input <- "https://tiktok.com/@x/video/2"
	input <- "not a url"
	input <- 42
	close(input)
	output := make(chan interface{}, 4)

	if err := stage.Execute(context.Background(), input, output, logger); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(output)

	var contents []models.Content
	for item := range output {
		contents = append(contents, item.(models.Content))
	}
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}

	if contents[0].Error != nil || contents[0].Link != (models.Link{Href: "https://cdn.example/cat.mp4", Filename: "Cat.mp4"}) {
		t.Errorf("unexpected first content: %+v", contents[0])
	}
	if !errors.Is(contents[1].Error, ErrNoMedia) {
		t.Errorf("expected ErrNoMedia, got %v", contents[1].Error)
	}
	if !errors.Is(contents[2].Error, ErrInvalidURL) {
		t.Errorf("expected ErrInvalidURL, got %v", contents[2].Error)
	}
	if src.callCount() != 2 {
		t.Errorf("expected 2 backend calls, got %d", src.callCount())
	}
}

func TestSingleStepStage_Cancel(t *testing.T) {
	logger := zaptest.NewLogger(t)
	stage := NewSingleStepStage(&fakeMediaSource{responses: []models.MediaInfo{{}}}, &notifier.Recorder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := make(chan interface{}, 1)
	input <- "https://tiktok.com/@x/video/1"
	close(input)

	if err := stage.Execute(ctx, input, make(chan interface{}, 1), logger); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
