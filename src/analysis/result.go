package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrTransport  = errors.New("analysis transport failure")
	ErrStatus     = errors.New("analysis service returned an error status")
	ErrMalformed  = errors.New("malformed analysis response")
	ErrMissingKey = errors.New("analysis api key is not set")
	ErrPending    = errors.New("analysis is still running")
)

// Result is one suggestion from an analyst. BestMove is SAN (UCI is
// accepted as well when the move is applied).
type Result struct {
	Evaluation string `json:"evaluation"`
	BestMove   string `json:"bestMove"`
	Commentary string `json:"commentary,omitempty"`
}

// Analyst returns exactly one suggestion for the position given as FEN.
type Analyst interface {
	Name() string
	Analyze(ctx context.Context, fen string) (Result, error)
}

// StatusError carries a non-2xx answer. It matches ErrStatus.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %d", ErrStatus, e.Code)
	}
	return fmt.Sprintf("%s: %d: %s", ErrStatus, e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// IsRetryable reports whether another attempt could succeed: transport
// failures, throttling and gateway errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrTransport) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case 429, 500, 502, 503, 504:
			return true
		}
	}
	return false
}

// StripFence removes markdown code fences (```json ... ```) around a reply.
func StripFence(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

type rawResult struct {
	Evaluation json.RawMessage `json:"evaluation"`
	BestMove   string          `json:"bestMove"`
	Commentary string          `json:"commentary"`
}

// ParseResult reads a reply body. bestMove and evaluation are required;
// a numeric evaluation is turned into text.
func ParseResult(text string) (Result, error) {
	body := StripFence(text)
	if body == "" {
		return Result{}, fmt.Errorf("%w: empty reply", ErrMalformed)
	}
	// models sometimes talk around the object
	if i, j := strings.Index(body, "{"), strings.LastIndex(body, "}"); i >= 0 && j > i {
		body = body[i : j+1]
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	res := Result{
		BestMove:   strings.TrimSpace(raw.BestMove),
		Commentary: strings.TrimSpace(raw.Commentary),
	}
	if res.BestMove == "" {
		return Result{}, fmt.Errorf("%w: missing bestMove", ErrMalformed)
	}
	eval, err := evaluationText(raw.Evaluation)
	if err != nil {
		return Result{}, err
	}
	res.Evaluation = eval
	return res, nil
}

func evaluationText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("%w: missing evaluation", ErrMalformed)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s = strings.TrimSpace(s); s == "" {
			return "", fmt.Errorf("%w: missing evaluation", ErrMalformed)
		}
		return s, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', 2, 64), nil
	}
	return "", fmt.Errorf("%w: evaluation is neither text nor number", ErrMalformed)
}

// AnalystFunc adapts a plain function, mostly for scripted opponents.
type AnalystFunc func(ctx context.Context, fen string) (Result, error)

func (f AnalystFunc) Name() string {
	return "func"
}

func (f AnalystFunc) Analyze(ctx context.Context, fen string) (Result, error) {
	return f(ctx, fen)
}
