package analysis

import (
	"context"
	"errors"
	"time"

	"cybersjakk/src/logx"
	"cybersjakk/src/metrics"
	"cybersjakk/src/retry"
)

// Instrumented retries transient failures of the wrapped analyst and
// records every call.
type Instrumented struct {
	next    Analyst
	retry   *retry.Manager
	logx    logx.Logger
	metrics *metrics.Collector
}

func NewInstrumented(next Analyst, cfg retry.Config, log logx.Logger, m *metrics.Collector) *Instrumented {
	if log == nil {
		log = logx.NewNop()
	}
	in := &Instrumented{next: next, logx: log, metrics: m}
	in.retry = retry.NewManager(cfg,
		retry.WithRetryable(IsRetryable),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			in.logx.Warnf("%s attempt %d failed, retrying in %s: %v", next.Name(), attempt, delay, err)
			if in.metrics != nil {
				in.metrics.RecordAnalysisRetry(next.Name())
			}
		}),
	)
	return in
}

func (in *Instrumented) Name() string {
	return in.next.Name()
}

func (in *Instrumented) Analyze(ctx context.Context, fen string) (Result, error) {
	started := time.Now()
	var res Result
	err := in.retry.Run(ctx, func(ctx context.Context) error {
		r, err := in.next.Analyze(ctx, fen)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if in.metrics != nil {
		in.metrics.RecordAnalysis(in.next.Name(), statusLabel(err), time.Since(started).Seconds())
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrStatus):
		return "status"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}
