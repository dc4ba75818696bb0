package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Task is one analysis request in flight. It completes exactly once,
// with a Result or an error.
type Task struct {
	ID  string
	FEN string

	done   chan struct{}
	cancel context.CancelFunc
	res    Result
	err    error
}

// Start runs a.Analyze on its own goroutine. A successful answer is held
// back until at least think has passed since the start; failures are
// reported at once.
func Start(ctx context.Context, a Analyst, fen string, think time.Duration) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		ID:     uuid.NewString(),
		FEN:    fen,
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go func() {
		defer close(t.done)
		defer cancel()

		started := time.Now()
		res, err := a.Analyze(ctx, fen)
		if err == nil {
			if rest := think - time.Since(started); rest > 0 {
				timer := time.NewTimer(rest)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					err = ctx.Err()
				}
			}
		}
		t.res, t.err = res, err
	}()
	return t
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Result returns ErrPending until the task has finished.
func (t *Task) Result() (Result, error) {
	select {
	case <-t.done:
		if t.err != nil {
			return Result{}, t.err
		}
		return t.res, nil
	default:
		return Result{}, ErrPending
	}
}

func (t *Task) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		return t.Result()
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Cancel abandons the request; the task still completes, with an error.
func (t *Task) Cancel() {
	t.cancel()
}
