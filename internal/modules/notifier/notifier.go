package notifier

import (
	"sync"

	"go.uber.org/zap"
)

// Notifier surfaces transient success and failure messages to the user.
type Notifier interface {
	NotifySuccess(msg string)
	NotifyFailure(msg string)
}

// Logger prints notifications through zap.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a Notifier backed by logger.
func NewLogger(logger *zap.Logger) *Logger {
	return &Logger{logger: logger.Named("notify")}
}

func (l *Logger) NotifySuccess(msg string) { l.logger.Info(msg) }

func (l *Logger) NotifyFailure(msg string) { l.logger.Error(msg) }

// Kind distinguishes recorded notifications.
type Kind string

const (
	KindSuccess Kind = "success"
	KindFailure Kind = "failure"
)

// Message is one recorded notification.
type Message struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// Recorder keeps notifications in memory. It is safe for concurrent use.
// With a positive Limit only the most recent Limit messages are kept.
type Recorder struct {
	Limit int

	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) NotifySuccess(msg string) { r.record(KindSuccess, msg) }

func (r *Recorder) NotifyFailure(msg string) { r.record(KindFailure, msg) }

func (r *Recorder) record(kind Kind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Kind: kind, Text: msg})
	if r.Limit > 0 && len(r.messages) > r.Limit {
		r.messages = append(r.messages[:0], r.messages[len(r.messages)-r.Limit:]...)
	}
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) NotifySuccess(msg string) {
	for _, n := range m {
		n.NotifySuccess(msg)
	}
}

func (m Multi) NotifyFailure(msg string) {
	for _, n := range m {
		n.NotifyFailure(msg)
	}
}
