// Package server exposes an Analyst over HTTP so a board can run against
// a local backend instead of a language model.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"cybersjakk/src/analysis"
	"cybersjakk/src/engine"
	"cybersjakk/src/logx"
	"cybersjakk/src/metrics"
	"cybersjakk/src/rules"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	DefaultAddr    = "127.0.0.1:8765"
	defaultTimeout = 30 * time.Second
	maxBodySize    = 16 << 10
)

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId"`
}

type Server struct {
	analyst analysis.Analyst
	logx    logx.Logger
	metrics *metrics.Collector
	timeout time.Duration

	srv        *fasthttp.Server
	promExport fasthttp.RequestHandler
}

func New(a analysis.Analyst, log logx.Logger, m *metrics.Collector, timeout time.Duration) *Server {
	if log == nil {
		log = logx.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	s := &Server{
		analyst:    a,
		logx:       log,
		metrics:    m,
		timeout:    timeout,
		promExport: fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()),
	}
	s.srv = &fasthttp.Server{
		Name:               "cybersjakk",
		Handler:            s.Handler,
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       timeout + 5*time.Second,
		MaxRequestBodySize: maxBodySize,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	s.logx.Infof("analysis backend listening on %s (%s)", addr, s.analyst.Name())
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Serve(ln net.Listener) error {
	return s.srv.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

// Handler routes one request. Exported for tests and embedding.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	started := time.Now()
	path := string(ctx.Path())

	switch path {
	case "/analyze":
		s.analyze(ctx)
	case "/healthz":
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("ok")
	case "/metrics":
		s.promExport(ctx)
	default:
		path = "other"
		ctx.Error("not found", fasthttp.StatusNotFound)
	}

	if s.metrics != nil {
		s.metrics.RecordHTTPRequest(string(ctx.Method()), path,
			strconv.Itoa(ctx.Response.StatusCode()), time.Since(started).Seconds())
	}
}

func (s *Server) analyze(ctx *fasthttp.RequestCtx) {
	id := uuid.NewString()
	ctx.Response.Header.Set("X-Request-Id", id)
	log := s.logx.With("request_id", id)

	if !ctx.IsPost() {
		ctx.Response.Header.Set("Allow", fasthttp.MethodPost)
		s.fail(ctx, id, fasthttp.StatusMethodNotAllowed, "use POST")
		return
	}

	var req analysis.Request
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		s.fail(ctx, id, fasthttp.StatusBadRequest, "body must be {\"fen\": \"...\"}")
		return
	}
	req.FEN = strings.TrimSpace(req.FEN)
	if req.FEN == "" {
		s.fail(ctx, id, fasthttp.StatusBadRequest, "missing fen")
		return
	}
	if _, err := rules.NewChessAdapterFromFEN(req.FEN); err != nil {
		s.fail(ctx, id, fasthttp.StatusBadRequest, err.Error())
		return
	}

	actx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	res, err := s.analyst.Analyze(actx, req.FEN)
	switch {
	case errors.Is(err, engine.ErrGameIsOver):
		s.fail(ctx, id, fasthttp.StatusUnprocessableEntity, "position has no legal moves")
		return
	case err != nil:
		log.Errorf("analyse %q: %v", req.FEN, err)
		s.fail(ctx, id, fasthttp.StatusInternalServerError, "analysis failed")
		return
	}

	log.Infof("%s -> %s (%s)", req.FEN, res.BestMove, res.Evaluation)
	s.writeJSON(ctx, fasthttp.StatusOK, res)
}

func (s *Server) fail(ctx *fasthttp.RequestCtx, id string, code int, msg string) {
	s.writeJSON(ctx, code, errorBody{Error: msg, RequestID: id})
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
