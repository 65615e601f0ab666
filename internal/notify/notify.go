package notify

import (
	"context"
	"sync"

	"github.com/angelmondragon/packtrack/pkg/logger"
)

// Notifier surfaces mutation outcomes to the user.
type Notifier interface {
	Success(message string)
	Error(message string)
}

type noop struct{}

func (noop) Success(string) {}
func (noop) Error(string)   {}

// Noop discards every message.
func Noop() Notifier { return noop{} }

// Funcs adapts plain callbacks; a nil callback is skipped.
type Funcs struct {
	OnSuccess func(message string)
	OnError   func(message string)
}

func (f Funcs) Success(message string) {
	if f.OnSuccess != nil {
		f.OnSuccess(message)
	}
}

func (f Funcs) Error(message string) {
	if f.OnError != nil {
		f.OnError(message)
	}
}

// Log writes notifications through the structured logger.
type Log struct {
	Logger *logger.Logger
}

func (l Log) Success(message string) {
	l.Logger.Info(l.Logger.WithField(context.Background(), "notification", "success"), message)
}

func (l Log) Error(message string) {
	l.Logger.Warn(l.Logger.WithField(context.Background(), "notification", "error"), message)
}

// Multi fans a message out to several notifiers.
type Multi []Notifier

func (m Multi) Success(message string) {
	for _, n := range m {
		if n != nil {
			n.Success(message)
		}
	}
}

func (m Multi) Error(message string) {
	for _, n := range m {
		if n != nil {
			n.Error(message)
		}
	}
}

// Recorder keeps every message in order. Safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (r *Recorder) Success(message string) {
	r.mu.Lock()
	r.successes = append(r.successes, message)
	r.mu.Unlock()
}

func (r *Recorder) Error(message string) {
	r.mu.Lock()
	r.errors = append(r.errors, message)
	r.mu.Unlock()
}

func (r *Recorder) Successes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.successes...)
}

func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

// OrNoop returns n, or the no-op notifier when n is nil.
func OrNoop(n Notifier) Notifier {
	if n == nil {
		return noop{}
	}
	return n
}
