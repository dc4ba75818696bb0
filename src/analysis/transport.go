package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

const DefaultTimeout = 20 * time.Second

// poster sends one JSON request per call. Retries live a level up, in
// Instrumented.
type poster struct {
	http    *fasthttp.Client
	timeout time.Duration
}

func newPoster(timeout time.Duration) *poster {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &poster{
		http: &fasthttp.Client{
			Name:            "cybersjakk",
			ReadTimeout:     timeout,
			WriteTimeout:    10 * time.Second,
			MaxConnsPerHost: 4,
		},
		timeout: timeout,
	}
}

// postJSON returns a copy of the body of a 2xx answer.
func (p *poster) postJSON(ctx context.Context, url string, in any) ([]byte, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.http.DoDeadline(req, resp, p.deadline(ctx)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return nil, &StatusError{Code: status, Body: truncate(string(resp.Body()), 256)}
	}
	return append([]byte(nil), resp.Body()...), nil
}

func (p *poster) deadline(ctx context.Context) time.Time {
	own := time.Now().Add(p.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(own) {
		return dl
	}
	return own
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
