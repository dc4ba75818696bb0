package analysis

import (
	"context"
	"fmt"
	"time"
)

const DefaultLocalEndpoint = "http://127.0.0.1:8765/analyze"

// Request is the body sent to a local backend.
type Request struct {
	FEN string `json:"fen"`
}

// LocalClient talks to a simulation backend such as `cybersjakk serve`.
type LocalClient struct {
	endpoint string
	post     *poster
}

func NewLocalClient(endpoint string, timeout time.Duration) *LocalClient {
	if endpoint == "" {
		endpoint = DefaultLocalEndpoint
	}
	return &LocalClient{endpoint: endpoint, post: newPoster(timeout)}
}

func (c *LocalClient) Name() string {
	return "local"
}

func (c *LocalClient) Analyze(ctx context.Context, fen string) (Result, error) {
	body, err := c.post.postJSON(ctx, c.endpoint, Request{FEN: fen})
	if err != nil {
		return Result{}, fmt.Errorf("local: %w", err)
	}
	res, err := ParseResult(string(body))
	if err != nil {
		return Result{}, fmt.Errorf("local: %w", err)
	}
	return res, nil
}
