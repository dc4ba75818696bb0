package retry

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// Config controls the backoff between attempts.
type Config struct {
	// MaxAttempts counts the first call; 0 or 1 means a single try.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter spreads each delay by up to ±Jitter of its value (0-1).
	Jitter float64
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     4 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// Manager runs a function until it succeeds, returns an error the
// predicate rejects, or runs out of attempts.
type Manager struct {
	config    Config
	retryable func(error) bool
	onRetry   func(attempt int, err error, delay time.Duration)
}

type Option func(*Manager)

// WithRetryable limits retries to errors the predicate accepts.
func WithRetryable(fn func(error) bool) Option {
	return func(m *Manager) { m.retryable = fn }
}

// WithOnRetry is called before every sleep.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(m *Manager) { m.onRetry = fn }
}

func NewManager(config Config, opts ...Option) *Manager {
	m := &Manager{config: config}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Run(ctx context.Context, fn func(context.Context) error) error {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		attempt++

		if m.config.MaxAttempts <= 1 || attempt >= m.config.MaxAttempts {
			return err
		}
		if m.retryable != nil && !m.retryable(err) {
			return err
		}

		delay := m.calculateDelay(attempt)
		if m.onRetry != nil {
			m.onRetry(attempt, err, delay)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}

func (m *Manager) calculateDelay(attempt int) time.Duration {
	mult := m.config.Multiplier
	if mult < 1 {
		mult = 1
	}
	delay := float64(m.config.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if m.config.MaxDelay > 0 && delay > float64(m.config.MaxDelay) {
		delay = float64(m.config.MaxDelay)
	}

	if m.config.Jitter > 0 {
		jitter := delay * m.config.Jitter
		if span := int64(jitter * 2); span > 0 {
			if n, err := rand.Int(rand.Reader, big.NewInt(span)); err == nil {
				delay += float64(n.Int64()) - jitter
			}
		}
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// NextDelay exposes the backoff for logging and tests.
func (m *Manager) NextDelay(attempt int) time.Duration {
	return m.calculateDelay(attempt)
}
