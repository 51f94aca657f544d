package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apimw "github.com/hamed0406/readycheck/internal/httpapi/middleware"
	"github.com/hamed0406/readycheck/internal/probe"
	"github.com/hamed0406/readycheck/internal/registry"
	"github.com/hamed0406/readycheck/internal/repo"
	"github.com/hamed0406/readycheck/internal/report"
)

// Read endpoints are limited per client to 120 req/min.
const (
	readPerMinute = 120
	maxListLimit  = 500
)

// Trigger starts a run and waits for its report.
type Trigger interface {
	Trigger(ctx context.Context) report.Report
}

type Server struct {
	Logger   *zap.Logger
	Reports  repo.ReportStore
	Registry *registry.Registry
	Runs     Trigger
	Gatherer prometheus.Gatherer
}

func NewServer(l *zap.Logger, reports repo.ReportStore, reg *registry.Registry, runs Trigger, g prometheus.Gatherer) *Server {
	return &Server{Logger: l, Reports: reports, Registry: reg, Runs: runs, Gatherer: g}
}

// RouterOptions tune the HTTP surface.
type RouterOptions struct {
	Keys          apimw.Keys
	Origins       []string // empty allows any origin
	RunsPerMinute int      // limit on POST /api/runs per client
	// TrustProxy takes the client address from X-Forwarded-For or
	// X-Real-IP. Enable only behind a proxy that sets them.
	TrustProxy bool
}

// Router wires the routes.
func (s *Server) Router(opts RouterOptions) http.Handler {
	keys, origins := opts.Keys, opts.Origins
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	if len(origins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.handleReady)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(apimw.RequireAny(keys))
			r.Use(apimw.RateLimit(readPerMinute, time.Minute))
			r.Get("/probes", s.handleListProbes)
			r.Get("/reports", s.handleListReports)
			r.Get("/reports/latest", s.handleLatestReport)
		})
		r.Group(func(r chi.Router) {
			r.Use(apimw.RequireAdmin(keys))
			r.Use(apimw.RateLimit(opts.RunsPerMinute, time.Minute))
			r.Post("/runs", s.handleRun)
		})
	})

	return r
}

// handleReady answers 200 only when the latest stored run was healthy.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	latest, err := s.Reports.Latest(r.Context())
	if err != nil {
		s.Logger.Warn("readyz_latest_error", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "report store unavailable")
		return
	}
	if latest == nil {
		writeError(w, http.StatusServiceUnavailable, "no run completed yet")
		return
	}
	code := http.StatusOK
	if !latest.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, summarize(*latest))
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	latest, err := s.Reports.Latest(r.Context())
	if err != nil {
		s.Logger.Warn("latest_report_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "latest error")
		return
	}
	if latest == nil {
		writeError(w, http.StatusNotFound, "no run completed yet")
		return
	}
	s.writeReport(w, r, http.StatusOK, *latest)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}
	list, err := s.Reports.List(r.Context(), limit)
	if err != nil {
		s.Logger.Warn("list_reports_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	out := make([]reportSummary, 0, len(list))
	for _, rep := range list {
		out = append(out, summarize(rep))
	}
	writeJSON(w, http.StatusOK, out)
}

type probeView struct {
	Name    string     `json:"name"`
	Kind    probe.Kind `json:"kind"`
	Target  string     `json:"target"`
	Timeout string     `json:"timeout"`
	Retries int        `json:"retries"`
}

func (s *Server) handleListProbes(w http.ResponseWriter, r *http.Request) {
	defs := s.Registry.All()
	out := make([]probeView, 0, len(defs))
	for _, d := range defs {
		out = append(out, probeView{
			Name:    d.Name,
			Kind:    d.Kind,
			Target:  redact(d),
			Timeout: d.Timeout.String(),
			Retries: d.Retries,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRun runs every probe now and returns the report. The HTTP status
// mirrors the result: 200 healthy, 503 unhealthy.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	rep := s.Runs.Trigger(r.Context())
	s.Logger.Info("manual_run",
		zap.String("run_id", rep.ID),
		zap.Bool("healthy", rep.Healthy),
		zap.String("request_id", chimw.GetReqID(r.Context())),
	)
	code := http.StatusOK
	if !rep.Healthy {
		code = http.StatusServiceUnavailable
	}
	s.writeReport(w, r, code, rep)
}

// writeReport honours ?format=text with the same lines the CLI prints.
func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, code int, rep report.Report) {
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(report.Render(rep)))
		return
	}
	writeJSON(w, code, rep)
}

type reportSummary struct {
	ID         string    `json:"id"`
	Healthy    bool      `json:"healthy"`
	Probes     int       `json:"probes"`
	HealthyN   int       `json:"healthy_probes"`
	Failing    []string  `json:"failing,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

func summarize(r report.Report) reportSummary {
	s := reportSummary{
		ID:         r.ID,
		Healthy:    r.Healthy,
		Probes:     len(r.Outcomes),
		HealthyN:   r.HealthyCount(),
		StartedAt:  r.StartedAt,
		DurationMS: r.Duration().Milliseconds(),
	}
	for _, o := range r.Outcomes {
		if !o.OK() {
			s.Failing = append(s.Failing, o.Probe)
		}
	}
	return s
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
