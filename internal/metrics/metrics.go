package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Query metrics
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screenpledge_queries_total",
			Help: "Total screen-time operations handled",
		},
		[]string{"method", "result"},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "screenpledge_query_duration_seconds",
			Help:    "Screen-time operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method"},
	)

	// Gating metrics
	GateFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screenpledge_gate_fallbacks_total",
			Help: "Gating fallbacks applied because a device-state signal was missing",
		},
		[]string{"fallback"},
	)

	GateClampApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screenpledge_gate_clamp_applied_total",
			Help: "Windows where counted time exceeded gated time and was clamped",
		},
	)

	DayCapApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screenpledge_day_cap_applied_total",
			Help: "Day totals clamped to 24 hours",
		},
	)

	// Catalog metrics
	LaunchableCacheLoads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screenpledge_launchable_cache_loads_total",
			Help: "Launchable subject set loads from the app catalog",
		},
	)

	MetadataCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screenpledge_metadata_cache_hits_total",
			Help: "App display metadata cache hits",
		},
	)

	MetadataCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screenpledge_metadata_cache_misses_total",
			Help: "App display metadata cache misses",
		},
	)

	// Event log metrics
	EventsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screenpledge_events_ingested_total",
			Help: "Usage events appended to the event log",
		},
		[]string{"type"},
	)

	EventsPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screenpledge_events_pruned_total",
			Help: "Usage events removed by retention",
		},
	)

	// Rollup metrics
	RollupRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screenpledge_rollup_runs_total",
			Help: "Daily rollup runs",
		},
		[]string{"result"},
	)

	LastDayUsageMinutes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "screenpledge_last_day_usage_minutes",
			Help: "Gated device usage of the most recently rolled-up day",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		QueriesTotal,
		QueryDuration,
		GateFallbacks,
		GateClampApplied,
		DayCapApplied,
		LaunchableCacheLoads,
		MetadataCacheHits,
		MetadataCacheMisses,
		EventsIngested,
		EventsPruned,
		RollupRuns,
		LastDayUsageMinutes,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
