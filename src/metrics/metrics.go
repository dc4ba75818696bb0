package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	instance *Collector
)

// Collector holds the process-wide prometheus series.
type Collector struct {
	analysisTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	analysisRetries  *prometheus.CounterVec

	movesTotal   *prometheus.CounterVec
	illegalTotal *prometheus.CounterVec
	gamesTotal   *prometheus.CounterVec

	engineSearches *prometheus.CounterVec
	engineDuration *prometheus.HistogramVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Default returns the singleton registered with the default registry.
func Default() *Collector {
	once.Do(func() {
		instance = &Collector{
			analysisTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cybersjakk_analysis_requests_total",
					Help: "Analysis requests by backend and outcome",
				},
				[]string{"backend", "status"},
			),
			analysisDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "cybersjakk_analysis_duration_seconds",
					Help:    "Duration of analysis requests in seconds",
					Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
				},
				[]string{"backend"},
			),
			analysisRetries: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cybersjakk_analysis_retries_total",
					Help: "Analysis request retries",
				},
				[]string{"backend"},
			),
			movesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cybersjakk_moves_total",
					Help: "Moves applied to the board",
				},
				[]string{"source"},
			),
			illegalTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cybersjakk_illegal_moves_total",
					Help: "Rejected move attempts",
				},
				[]string{"source"},
			),
			gamesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cybersjakk_games_finished_total",
					Help: "Finished games by result",
				},
				[]string{"result"},
			),
			engineSearches: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cybersjakk_engine_searches_total",
					Help: "Engine searches by engine and outcome",
				},
				[]string{"engine", "status"},
			),
			engineDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "cybersjakk_engine_search_duration_seconds",
					Help:    "Duration of engine searches in seconds",
					Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
				},
				[]string{"engine"},
			),
			httpRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cybersjakk_http_requests_total",
					Help: "HTTP requests served by the analysis backend",
				},
				[]string{"method", "path", "status"},
			),
			httpRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "cybersjakk_http_request_duration_seconds",
					Help:    "Duration of HTTP requests in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "path"},
			),
		}
	})
	return instance
}

func (c *Collector) RecordAnalysis(backend, status string, durationSecs float64) {
	c.analysisTotal.WithLabelValues(backend, status).Inc()
	c.analysisDuration.WithLabelValues(backend).Observe(durationSecs)
}

func (c *Collector) RecordAnalysisRetry(backend string) {
	c.analysisRetries.WithLabelValues(backend).Inc()
}

// RecordMove counts an applied move; source is "player" or "ai".
func (c *Collector) RecordMove(source string) {
	c.movesTotal.WithLabelValues(source).Inc()
}

func (c *Collector) RecordIllegalMove(source string) {
	c.illegalTotal.WithLabelValues(source).Inc()
}

func (c *Collector) RecordGameOver(result string) {
	c.gamesTotal.WithLabelValues(result).Inc()
}

func (c *Collector) RecordEngineSearch(engine, status string, durationSecs float64) {
	c.engineSearches.WithLabelValues(engine, status).Inc()
	c.engineDuration.WithLabelValues(engine).Observe(durationSecs)
}

func (c *Collector) RecordHTTPRequest(method, path, status string, durationSecs float64) {
	c.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(durationSecs)
}
