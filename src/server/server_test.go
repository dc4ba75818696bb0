package server

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"cybersjakk/src/analysis"
	"cybersjakk/src/base"
	"cybersjakk/src/engine"
	"cybersjakk/src/engine/material"
	"cybersjakk/src/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func request(s *Server, method, path, body string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI("http://backend.test" + path)
	req.SetBodyString(body)

	var ctx fasthttp.RequestCtx
	ctx.Init(&req, nil, nil)
	s.Handler(&ctx)
	return &ctx
}

func newTestServer() *Server {
	sim := analysis.NewSimulator(material.New(nil), engine.SearchParams{MaxDepth: 2}, nil, nil)
	return New(sim, nil, metrics.Default(), 5*time.Second)
}

func TestAnalyze(t *testing.T) {
	s := newTestServer()
	ctx := request(s, "POST", "/analyze", `{"fen": "`+base.FEN_START_GAME+`"}`)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode(), string(ctx.Response.Body()))
	assert.NotEmpty(t, ctx.Response.Header.Peek("X-Request-Id"))

	res, err := analysis.ParseResult(string(ctx.Response.Body()))
	require.NoError(t, err)
	assert.NotEmpty(t, res.BestMove)
	assert.Contains(t, res.Commentary, "material")
}

func TestAnalyzeRejects(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		method, body string
		code         int
	}{
		{"GET", "", fasthttp.StatusMethodNotAllowed},
		{"POST", "not json", fasthttp.StatusBadRequest},
		{"POST", `{}`, fasthttp.StatusBadRequest},
		{"POST", `{"fen": "  "}`, fasthttp.StatusBadRequest},
		{"POST", `{"fen": "not a position"}`, fasthttp.StatusBadRequest},
		{"POST", `{"fen": "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"}`, fasthttp.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		ctx := request(s, tt.method, "/analyze", tt.body)
		assert.Equal(t, tt.code, ctx.Response.StatusCode(), tt.body)

		var eb errorBody
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &eb))
		assert.NotEmpty(t, eb.Error)
		assert.Equal(t, string(ctx.Response.Header.Peek("X-Request-Id")), eb.RequestID)
	}
}

func TestAnalystFailure(t *testing.T) {
	broken := analysis.AnalystFunc(func(context.Context, string) (analysis.Result, error) {
		return analysis.Result{}, engine.ErrNotRunning
	})
	s := New(broken, nil, nil, time.Second)
	ctx := request(s, "POST", "/analyze", `{"fen": "`+base.FEN_START_GAME+`"}`)
	assert.Equal(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode())
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer()
	ctx := request(s, "GET", "/healthz", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "ok", string(ctx.Response.Body()))

	ctx = request(s, "GET", "/metrics", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), `cybersjakk_http_requests_total{method="GET",path="/healthz",status="200"}`)

	ctx = request(s, "GET", "/nope", "")
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

func TestLocalClientRoundTrip(t *testing.T) {
	s := newTestServer()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.Serve(ln) }()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	}()

	c := analysis.NewLocalClient("http://"+ln.Addr().String()+"/analyze", 5*time.Second)
	res, err := c.Analyze(context.Background(), "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.BestMove)
	assert.NotEmpty(t, res.Evaluation)
}
