package query

import (
	"context"
	"fmt"

	"github.com/angelmondragon/packtrack/internal/notify"
	pkgerrors "github.com/angelmondragon/packtrack/pkg/errors"
)

// Mutation describes a write and its cache effects.
type Mutation[V, T any] struct {
	// Name is the classification context, e.g. "updatePackageStatus(42)".
	Name string
	Fn   func(ctx context.Context, vars V) (T, error)
	// Optimistic applies speculative writes before Fn runs.
	Optimistic func(s *Store, vars V) []*Snapshot
	// Apply runs on success, after snapshots were committed. latest lists
	// which snapshots were still the newest write on their key.
	Apply func(s *Store, vars V, result T, latest []bool)
	// SuccessMessage builds the default success notification.
	SuccessMessage func(vars V, result T) string
	// ErrorMessage is the default failure prefix; the error message is appended.
	ErrorMessage string
}

// MutateOptions are per-call overrides.
type MutateOptions[V, T any] struct {
	SuccessMessage string
	ErrorMessage   string
	QuietSuccess   bool
	QuietError     bool
	Notifier       notify.Notifier
	OnSuccess      func(result T, vars V)
	OnError        func(err *pkgerrors.APIErrorResponse, vars V)
}

// Mutate runs m and settles the cache. Failures are rolled back, notified, passed to
// OnError and returned; nothing is committed on failure.
func Mutate[V, T any](ctx context.Context, s *Store, m Mutation[V, T], vars V, opts MutateOptions[V, T]) (T, error) {
	var snapshots []*Snapshot
	if m.Optimistic != nil {
		snapshots = m.Optimistic(s, vars)
	}

	result, failure := invoke(ctx, m.Fn, vars)
	notifier := s.notifier
	if opts.Notifier != nil {
		notifier = opts.Notifier
	}

	if failure != nil {
		classified := pkgerrors.Classify(failure, m.Name)
		for i := len(snapshots) - 1; i >= 0; i-- {
			s.Rollback(snapshots[i])
		}
		s.metrics.ObserveMutation(operationLabel(m.Name), string(classified.Code))
		s.logger.Warn(s.logger.WithFields(ctx, map[string]any{
			"operation": m.Name,
			"code":      string(classified.Code),
		}), classified.Message)

		if !opts.QuietError {
			message := opts.ErrorMessage
			if message == "" {
				message = fmt.Sprintf("%s: %s", m.ErrorMessage, errorText(classified))
			}
			notifier.Error(message)
		}
		if opts.OnError != nil {
			opts.OnError(classified, vars)
		}
		var zero T
		return zero, classified
	}

	latest := make([]bool, len(snapshots))
	for i, snap := range snapshots {
		latest[i] = s.Commit(snap)
	}
	if m.Apply != nil {
		m.Apply(s, vars, result, latest)
	}
	s.metrics.ObserveMutation(operationLabel(m.Name), "success")

	if !opts.QuietSuccess {
		message := opts.SuccessMessage
		if message == "" && m.SuccessMessage != nil {
			message = m.SuccessMessage(vars, result)
		}
		if message != "" {
			notifier.Success(message)
		}
	}
	if opts.OnSuccess != nil {
		opts.OnSuccess(result, vars)
	}
	return result, nil
}

// invoke calls fn and reports either its error or a recovered panic value.
// Non-error panic values are classified with a generic message.
func invoke[V, T any](ctx context.Context, fn func(context.Context, V) (T, error), vars V) (result T, failure any) {
	defer func() {
		if r := recover(); r != nil {
			failure = r
		}
	}()
	if fn == nil {
		return result, pkgerrors.New(pkgerrors.CodeConfig, "mutation has no function")
	}
	result, err := fn(ctx, vars)
	if err != nil {
		return result, err
	}
	return result, nil
}

func errorText(resp *pkgerrors.APIErrorResponse) string {
	if resp == nil || resp.Message == "" {
		return "Unknown error"
	}
	return resp.Message
}

// operationLabel strips call arguments so metric labels stay bounded: "getPackage(42)" -> "getPackage".
func operationLabel(name string) string {
	for i, r := range name {
		if r == '(' {
			return name[:i]
		}
	}
	return name
}
