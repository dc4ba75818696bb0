package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFence(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
		"```JSON{}```":            `{}`,
	}
	for in, want := range tests {
		assert.Equal(t, want, StripFence(in), in)
	}
}

func TestParseResult(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Result
	}{
		{
			name: "plain",
			in:   `{"evaluation": "+0.5, white is slightly better", "bestMove": "Nf3"}`,
			want: Result{Evaluation: "+0.5, white is slightly better", BestMove: "Nf3"},
		},
		{
			name: "fenced with commentary",
			in:   "```json\n{\"evaluation\":\"0.00\",\"bestMove\":\" e5 \",\"commentary\":\"Symmetry.\"}\n```",
			want: Result{Evaluation: "0.00", BestMove: "e5", Commentary: "Symmetry."},
		},
		{
			name: "numeric evaluation",
			in:   `{"evaluation": -1.2, "bestMove": "exd5"}`,
			want: Result{Evaluation: "-1.20", BestMove: "exd5"},
		},
		{
			name: "chatter around the object",
			in:   `Sure! {"evaluation": "=", "bestMove": "O-O"} Good luck.`,
			want: Result{Evaluation: "=", BestMove: "O-O"},
		},
		{
			name: "trailing chatter",
			in:   `{"bestMove":"e5","evaluation":"0.1"} Good luck!`,
			want: Result{Evaluation: "0.1", BestMove: "e5"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResult(tt.in)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseResult mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseResultMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"```json```",
		"I think Nf3 is best.",
		`{"evaluation": "0.00"}`,
		`{"bestMove": "e4"}`,
		`{"evaluation": "", "bestMove": "e4"}`,
		`{"evaluation": ["a"], "bestMove": "e4"}`,
		`{"evaluation": "0.00", "bestMove": ""}`,
	} {
		_, err := ParseResult(in)
		assert.ErrorIs(t, err, ErrMalformed, in)
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("gemini: %w: dial", ErrTransport)))
	assert.True(t, IsRetryable(&StatusError{Code: 503}))
	assert.True(t, IsRetryable(fmt.Errorf("x: %w", &StatusError{Code: 429})))
	assert.False(t, IsRetryable(&StatusError{Code: 400}))
	assert.False(t, IsRetryable(fmt.Errorf("x: %w", ErrMalformed)))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("other")))
}

func TestStatusError(t *testing.T) {
	err := fmt.Errorf("local: %w", &StatusError{Code: 502, Body: "bad gateway"})
	assert.ErrorIs(t, err, ErrStatus)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "bad gateway")
}
