// Package api exposes the monitoring state over HTTP as JSON.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/structure.report/internal/baseline"
	"github.com/banshee-data/structure.report/internal/httputil"
	"github.com/banshee-data/structure.report/internal/pipeline"
	"github.com/banshee-data/structure.report/internal/vibration"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server serves the monitoring API over the pipeline's published state.
type Server struct {
	p *pipeline.Pipeline
}

// NewServer creates a server over the given pipeline.
func NewServer(p *pipeline.Pipeline) *Server {
	return &Server{p: p}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux builds the route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.health)
	mux.HandleFunc("/api/metrics", s.showMetrics)
	mux.HandleFunc("/api/signal", s.showSignal)
	mux.HandleFunc("/api/spectral_peaks", s.showSpectralPeaks)
	mux.HandleFunc("/api/baselines", s.baselines)
	mux.HandleFunc("/api/baseline/", s.baselineByName)
	mux.HandleFunc("/api/baseline_comparison", s.showComparison)
	mux.HandleFunc("/api/events", s.showEvents)
	mux.HandleFunc("/api/damage", s.showDamage)
	mux.HandleFunc("/api/confidence", s.showConfidence)
	mux.HandleFunc("/api/dashboard", s.showDashboard)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// latest fetches the last published bundle or writes the not-ready error.
func (s *Server) latest(w http.ResponseWriter) (pipeline.Results, bool) {
	res, ok := s.p.Latest()
	if !ok {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable,
			"no analysis results yet; the signal buffer is still filling")
	}
	return res, ok
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	_, ready := s.p.Latest()
	httputil.WriteJSONOK(w, map[string]interface{}{
		"status": "ok",
		"ready":  ready,
	})
}

func (s *Server) showMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	res, ok := s.latest(w)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, res.Metrics)
}

func (s *Server) showSignal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	res, ok := s.latest(w)
	if !ok {
		return
	}
	signal := res.Signal
	if n := r.URL.Query().Get("n"); n != "" {
		count, err := strconv.Atoi(n)
		if err != nil || count < 1 {
			httputil.BadRequest(w, "Invalid 'n' parameter")
			return
		}
		if count < len(signal) {
			signal = signal[len(signal)-count:]
		}
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"signal":     signal,
		"updated_at": res.UpdatedAt,
	})
}

func (s *Server) showSpectralPeaks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	res, ok := s.latest(w)
	if !ok {
		return
	}
	peaks := res.Metrics.SpectralPeaks
	if peaks == nil {
		peaks = []vibration.SpectralPeak{}
	}
	httputil.WriteJSONOK(w, peaks)
}

func (s *Server) baselines(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		names, err := s.p.Store().List()
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("Failed to list baselines: %v", err))
			return
		}
		if names == nil {
			names = []string{}
		}
		httputil.WriteJSONOK(w, map[string]interface{}{"baselines": names})
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(w, "Invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			httputil.BadRequest(w, "Baseline name is required")
			return
		}
		b, err := s.p.CreateBaseline(req.Name)
		if err != nil {
			if errors.Is(err, vibration.ErrInsufficientData) {
				httputil.WriteJSONError(w, http.StatusServiceUnavailable,
					"no analysis results yet; cannot record a baseline")
				return
			}
			httputil.InternalServerError(w, fmt.Sprintf("Failed to create baseline: %v", err))
			return
		}
		httputil.WriteJSONCreated(w, b)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) baselineByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/baseline/")
	if name == "" || strings.Contains(name, "/") {
		httputil.NotFound(w, "Baseline not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		b, err := s.p.Store().Load(name)
		if err != nil {
			s.writeBaselineError(w, name, err)
			return
		}
		httputil.WriteJSONOK(w, b)
	case http.MethodDelete:
		if err := s.p.Store().Reset(name); err != nil {
			s.writeBaselineError(w, name, err)
			return
		}
		httputil.WriteJSONOK(w, map[string]string{"deleted": name})
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) writeBaselineError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, baseline.ErrNotFound) {
		httputil.NotFound(w, fmt.Sprintf("Baseline %q not found", name))
		return
	}
	httputil.InternalServerError(w, fmt.Sprintf("Baseline %q: %v", name, err))
}

func (s *Server) showComparison(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	name := r.URL.Query().Get("baseline")
	if name == "" {
		httputil.BadRequest(w, "Missing 'baseline' parameter")
		return
	}
	report, err := s.p.CompareTo(name)
	if err != nil {
		if errors.Is(err, vibration.ErrInsufficientData) {
			httputil.WriteJSONError(w, http.StatusServiceUnavailable,
				"no analysis results yet; cannot compare")
			return
		}
		s.writeBaselineError(w, name, err)
		return
	}
	httputil.WriteJSONOK(w, report)
}

func (s *Server) showEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	lookback := 3600.0 // seconds
	if v := r.URL.Query().Get("lookback_seconds"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			httputil.BadRequest(w, "Invalid 'lookback_seconds' parameter")
			return
		}
		lookback = parsed
	}
	window := time.Duration(lookback * float64(time.Second))
	httputil.WriteJSONOK(w, map[string]interface{}{
		"summary": s.p.EventSummary(window),
		"events":  s.p.RecentEvents(window),
	})
}

func (s *Server) showDamage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	res, ok := s.latest(w)
	if !ok {
		return
	}
	if res.Damage == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no damage assessment yet")
		return
	}
	httputil.WriteJSONOK(w, res.Damage)
}

func (s *Server) showConfidence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	res, ok := s.latest(w)
	if !ok {
		return
	}
	if res.Confidence == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no confidence assessment yet")
		return
	}
	httputil.WriteJSONOK(w, res.Confidence)
}

// showDashboard returns the full published bundle in one response, so a
// single poll can render the whole operator view.
func (s *Server) showDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	res, ok := s.latest(w)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"metrics":    res.Metrics,
		"deviation":  res.Deviation,
		"damage":     res.Damage,
		"confidence": res.Confidence,
		"events":     s.p.EventSummary(time.Hour),
		"updated_at": res.UpdatedAt,
		"warnings":   res.Warnings,
	})
}
