package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	proposalengine "conclave/contexts/governance-core/proposal-engine"
	"conclave/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "conclave/internal/platform/httpserver/docs"
)

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	governance proposalengine.Module
}

func New(governance proposalengine.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		governance: governance,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the routed mux for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.route("POST /v1/proposals", s.handleSubmitProposal)
	s.route("GET /v1/proposals", s.handleListProposals)
	s.route("GET /v1/proposals/{proposal_id}", s.handleGetProposal)
	s.route("GET /v1/proposals/{proposal_id}/status", s.handleProposalStatus)
	s.route("POST /v1/proposals/{proposal_id}/votes", s.handleCastVote)
	s.route("POST /v1/proposals/{proposal_id}/process", s.handleProcessProposal)
	s.route("POST /v1/proposals/{proposal_id}/cancel", s.handleCancelProposal)
	s.route("GET /v1/parameters", s.handleParameters)
	s.route("POST /v1/governance/policies", s.handleInitPolicies)
	s.route("GET /v1/extensions/{extension}", s.handleExtensionStatus)
	s.route("POST /v1/extensions/{extension}/invoke", s.handleInvokeExtension)
	s.route("POST /v1/batch", s.handleBatch)
}

// route wraps each handler with the request duration histogram.
func (s *Server) route(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		handler(recorder, r)
		metrics.HTTPRequestDuration.WithLabelValues(
			pattern,
			r.Method,
			strconv.Itoa(recorder.status),
		).Observe(time.Since(started).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
