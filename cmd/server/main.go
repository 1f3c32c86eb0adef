package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/platewise/pricing/internal/logger"
	"github.com/platewise/pricing/pricing"
)

type Server struct {
	db     *sql.DB
	store  pricing.RuleStore
	cache  pricing.RulesCache
	router *chi.Mux
}

func NewServer(databaseURL string) (*Server, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := newServerWithStore(pricing.NewPostgresRuleStore(db))
	s.db = db
	return s, nil
}

// newServerWithStore wires a server around any RuleStore; tests use it
// with the in-memory store.
func newServerWithStore(store pricing.RuleStore) *Server {
	s := &Server{
		store: store,
		cache: pricing.NewInMemoryRulesCache(pricing.DefaultCacheConfig()),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/api/v1/health", s.handleHealth)

	// Pricing
	r.Post("/api/v1/simulate", s.handleSimulate)
	r.Post("/api/v1/evaluate", s.handleEvaluate)

	// Rule management
	r.Route("/api/v1/rules", func(r chi.Router) {
		r.Get("/", s.handleListRules)
		r.Post("/", s.handleCreateRule)

		r.Route("/{ruleId}", func(r chi.Router) {
			r.Get("/", s.handleGetRule)
			r.Put("/", s.handleUpdateRule)
			r.Delete("/", s.handleDeleteRule)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// activeRules returns the active rule list, going through the cache so a
// simulate-per-keystroke UI does not hammer the store.
func (s *Server) activeRules() ([]*pricing.Rule, error) {
	if rules := s.cache.Get(); rules != nil {
		return rules, nil
	}

	rules, err := s.store.ListActive()
	if err != nil {
		return nil, err
	}
	s.cache.Set(rules)
	return rules, nil
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	active, err := s.activeRules()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "failed to load rules", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"activeRules": len(active),
	})
}

// Simulation handler: previews the effect of the stored active rules,
// optionally merged with not-yet-saved draft rules, against a
// caller-supplied catalog and context. No persistence side effects.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if len(req.Catalog) == 0 {
		respondError(w, http.StatusBadRequest, "catalog is required", nil)
		return
	}
	if req.Context.Now.IsZero() {
		req.Context.Now = time.Now()
	}

	active, err := s.activeRules()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load rules", err)
		return
	}

	rules := make([]*pricing.Rule, 0, len(active)+len(req.DraftRules))
	rules = append(rules, active...)

	for i := range req.DraftRules {
		// Rule ID breaks priority ties, so drafts need a stable ID:
		// a random one would let two identical preview requests order
		// a tied draft differently and return different prices.
		draft, err := req.DraftRules[i].toRule(fmt.Sprintf("draft-%d", i+1))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid draft rule", err)
			return
		}
		// Previews answer "what if this rule were active right now".
		draft.Status = pricing.StatusActive
		if err := pricing.ValidateRule(draft); err != nil {
			respondError(w, http.StatusBadRequest, "invalid draft rule", err)
			return
		}
		rules = append(rules, draft)
	}

	startTime := time.Now()
	previews := pricing.Simulate(rules, req.Catalog, req.Context)

	respondJSON(w, http.StatusOK, SimulateResponse{
		Previews:       previews,
		Warnings:       clampWarnings(previews),
		EvaluationTime: time.Since(startTime).String(),
	})
}

// Live evaluation handler: same pipeline as simulate but against stored
// rules only, and records which rules fired so the store can keep the
// timesTriggered/lastTriggeredAt bookkeeping.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if len(req.Catalog) == 0 {
		respondError(w, http.StatusBadRequest, "catalog is required", nil)
		return
	}
	if req.Context.Now.IsZero() {
		req.Context.Now = time.Now()
	}

	active, err := s.activeRules()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load rules", err)
		return
	}

	startTime := time.Now()
	previews := pricing.Simulate(active, req.Catalog, req.Context)

	fired := pricing.FiredRuleIDs(previews)
	for _, id := range fired {
		if err := s.store.RecordTrigger(id, req.Context.Now); err != nil {
			// Bookkeeping failure should not fail the pricing response.
			logger.Warn("failed to record trigger", "ruleId", id, "error", err)
		}
	}
	if len(fired) > 0 {
		s.cache.Invalidate()
	}

	respondJSON(w, http.StatusOK, EvaluateResponse{
		Previews:       previews,
		FiredRules:     fired,
		EvaluationTime: time.Since(startTime).String(),
	})
}

// Create rule handler
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rule, err := req.toRule(uuid.New().String())
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid trigger", err)
		return
	}
	if rule.Status == "" {
		rule.Status = pricing.StatusDraft
	}
	rule.CreatedAt = time.Now()

	if err := pricing.ValidateRule(rule); err != nil {
		respondError(w, http.StatusBadRequest, "rule validation failed", err)
		return
	}

	if err := s.store.Add(rule); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to add rule", err)
		return
	}

	// Invalidate cache since rules list changed
	s.cache.Invalidate()

	respondJSON(w, http.StatusCreated, rule)
}

// List rules handler
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.store.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rules", err)
		return
	}

	respondJSON(w, http.StatusOK, RulesListResponse{Rules: rules})
}

// Get rule handler
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleId")

	rule, err := s.store.Get(ruleID)
	if err != nil {
		respondError(w, http.StatusNotFound, "rule not found", err)
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

// Update rule handler
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleId")

	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rule, err := req.toRule(ruleID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid trigger", err)
		return
	}

	if err := pricing.ValidateRule(rule); err != nil {
		respondError(w, http.StatusBadRequest, "rule validation failed", err)
		return
	}

	if err := s.store.Update(rule); err != nil {
		respondError(w, http.StatusNotFound, "failed to update rule", err)
		return
	}

	// Invalidate cache since rule metadata might have changed
	s.cache.Invalidate()

	respondJSON(w, http.StatusOK, rule)
}

// Delete rule handler
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleId")

	if err := s.store.Delete(ruleID); err != nil {
		respondError(w, http.StatusNotFound, "rule not found", err)
		return
	}

	s.cache.Invalidate()

	w.WriteHeader(http.StatusNoContent)
}

// clampWarnings turns clamped trail steps into caller-facing warnings.
func clampWarnings(previews []pricing.ItemPreview) []string {
	var warnings []string
	for _, p := range previews {
		for _, step := range p.Trail {
			if step.Clamped {
				warnings = append(warnings, fmt.Sprintf(
					"rule %s drove item %s below zero; price clamped to 0",
					step.RuleID, p.ItemID))
			}
		}
	}
	return warnings
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("DATABASE_URL environment variable is required")
	}

	server, err := NewServer(databaseURL)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}
	defer server.db.Close()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("server starting", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
