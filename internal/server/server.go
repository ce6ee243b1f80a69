package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pathfinder/internal/advisor"
	"pathfinder/internal/risk"
)

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
	historyLimit    = 10
)

// Assessor evaluates risk for a set of countries
type Assessor interface {
	Run(ctx context.Context, countries []string) risk.Bundle
	EvaluateClimate(ctx context.Context, countries []string) risk.ClimateResult
	EvaluateCarbon(ctx context.Context, countries []string, sector string) risk.CarbonResult
	EvaluateTechnology(ctx context.Context, countries []string) risk.TechnologyResult
}

// HistoryReader lists past assessments, newest first. A latest reader that
// also implements it enables /api/risk/history.
type HistoryReader interface {
	Recent(ctx context.Context, count int64) ([][]byte, error)
}

type AssessmentRequest struct {
	Countries []string `json:"countries"`
}

type RoadmapRequest struct {
	Company   string          `json:"company"`
	Profile   advisor.Profile `json:"profile"`
	Countries []string        `json:"countries"`
}

type RoadmapResponse struct {
	Company        string      `json:"company"`
	RiskAssessment risk.Bundle `json:"risk_assessment"`
	Roadmap        string      `json:"roadmap"`
}

// Server represents the HTTP server
type Server struct {
	assessor Assessor
	latest   risk.LatestReader
	advisor  advisor.Advisor
	logger   *zap.Logger
	router   chi.Router
}

// NewServer creates a new HTTP server. latest and adv may be nil; the
// matching routes then answer 404 and 503.
func NewServer(a Assessor, latest risk.LatestReader, adv advisor.Advisor, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		assessor: a,
		latest:   latest,
		advisor:  adv,
		logger:   logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Route("/risk", func(r chi.Router) {
			r.Post("/assessment", s.handleAssessment)
			r.Get("/latest", s.handleLatest)
			r.Get("/history", s.handleHistory)
			r.Get("/climate", s.handleClimate)
			r.Get("/carbon", s.handleCarbon)
			r.Get("/technology", s.handleTechnology)
		})
		r.Post("/roadmap", s.handleRoadmap)
	})

	return r
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleHealth returns the server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().String(),
	})
}

// handleAssessment runs all three domains and persists the result
func (s *Server) handleAssessment(w http.ResponseWriter, r *http.Request) {
	var req AssessmentRequest
	if !decode(w, r, &req) {
		return
	}

	bundle := s.assessor.Run(r.Context(), cleanCountries(req.Countries))
	respond(w, http.StatusOK, bundle)
}

// handleLatest returns the most recently persisted assessment as stored
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if s.latest == nil {
		respondErr(w, http.StatusNotFound, risk.ErrNoAssessment.Error())
		return
	}

	data, err := s.latest.Latest(r.Context())
	if errors.Is(err, risk.ErrNoAssessment) {
		respondErr(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleHistory returns the most recent published assessments
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, ok := s.latest.(HistoryReader)
	if !ok {
		respondErr(w, http.StatusNotFound, "assessment history is not available")
		return
	}

	limit := int64(historyLimit)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.ParseInt(limitStr, 10, 64); err == nil && l > 0 {
			limit = l
		}
	}

	items, err := history.Recent(r.Context(), limit)
	if err != nil {
		s.respondInternalErr(w, r, err)
		return
	}

	assessments := make([]json.RawMessage, len(items))
	for i, item := range items {
		assessments[i] = item
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"count":       len(assessments),
		"assessments": assessments,
	})
}

func (s *Server) handleClimate(w http.ResponseWriter, r *http.Request) {
	countries, ok := queryCountries(w, r)
	if !ok {
		return
	}
	respond(w, http.StatusOK, s.assessor.EvaluateClimate(r.Context(), countries))
}

func (s *Server) handleCarbon(w http.ResponseWriter, r *http.Request) {
	countries, ok := queryCountries(w, r)
	if !ok {
		return
	}
	sector := strings.TrimSpace(r.URL.Query().Get("sector"))
	respond(w, http.StatusOK, s.assessor.EvaluateCarbon(r.Context(), countries, sector))
}

func (s *Server) handleTechnology(w http.ResponseWriter, r *http.Request) {
	countries, ok := queryCountries(w, r)
	if !ok {
		return
	}
	respond(w, http.StatusOK, s.assessor.EvaluateTechnology(r.Context(), countries))
}

// handleRoadmap assesses the countries and asks the advisor for a roadmap
func (s *Server) handleRoadmap(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		respondErr(w, http.StatusServiceUnavailable, "roadmap advisor is not configured")
		return
	}

	var req RoadmapRequest
	if !decode(w, r, &req) {
		return
	}
	req.Company = strings.TrimSpace(req.Company)
	if req.Company == "" {
		respondErr(w, http.StatusBadRequest, "company is required")
		return
	}

	bundle := s.assessor.Run(r.Context(), cleanCountries(req.Countries))
	prompt := advisor.BuildRoadmapPrompt(req.Company, req.Profile, bundle)

	roadmap, err := s.advisor.Roadmap(r.Context(), prompt)
	if err != nil {
		s.logger.Error("roadmap generation failed",
			zap.String("company", req.Company),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		respondErr(w, http.StatusBadGateway, "roadmap generation failed")
		return
	}

	respond(w, http.StatusOK, RoadmapResponse{
		Company:        req.Company,
		RiskAssessment: bundle,
		Roadmap:        roadmap,
	})
}

// queryCountries reads ?country= values, repeated or comma separated.
// It writes 400 and returns false when none are given.
func queryCountries(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	var raw []string
	for _, v := range r.URL.Query()["country"] {
		raw = append(raw, strings.Split(v, ",")...)
	}

	countries := cleanCountries(raw)
	if len(countries) == 0 {
		respondErr(w, http.StatusBadRequest, "at least one country is required")
		return nil, false
	}
	return countries, true
}

// cleanCountries trims names and drops blanks, keeping order and repeats
func cleanCountries(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func respondErr(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{"error": message})
}

// decode reads a JSON body of at most 1 MB. It writes 400 and returns
// false on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondErr(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
