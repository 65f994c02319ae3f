// Package demoserver is an in-memory backend that speaks the same REST
// contract as the real platform. It returns canned findings and analytics
// and is meant for offline use and tests.
package demoserver

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/abhisek/threatlab/internal/logging"
)

// DefaultAddr is where the demo server listens by default.
const DefaultAddr = ":8001"

// DemoEmail and DemoPassword sign in the seeded account.
const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "demo123"
)

// Options configures a Server.
type Options struct {
	// Seed makes the canned finding selection reproducible. Zero uses the
	// current time.
	Seed   uint64
	Logger *zap.SugaredLogger
}

// Server is the in-memory backend.
type Server struct {
	log     *zap.SugaredLogger
	metrics *metrics
	router  *mux.Router

	mu    sync.Mutex
	state *state
	rng   *rand.Rand
}

// New creates a Server seeded with the demo account, scenarios and
// learning paths.
func New(opts Options) *Server {
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	log := opts.Logger
	if log == nil {
		log = logging.Component("demoserver")
	}

	s := &Server{
		log:     log,
		metrics: newMetrics(),
		state:   newState(),
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler, with the API under /api and Prometheus
// metrics at /metrics.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry exposes the server's metrics registry.
func (s *Server) Registry() *prometheus.Registry {
	return s.metrics.registry
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// Public auth endpoints.
	a.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	a.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	a.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)

	p := a.NewRoute().Subrouter()
	p.Use(s.requireAuth)

	p.HandleFunc("/auth/verify", s.handleVerify).Methods(http.MethodGet)
	p.HandleFunc("/auth/profile", s.handleProfile).Methods(http.MethodGet)
	p.HandleFunc("/auth/profile", s.handleUpdateProfile).Methods(http.MethodPut)

	p.HandleFunc("/scenarios/", s.handleListScenarios).Methods(http.MethodGet)
	p.HandleFunc("/scenarios/", s.handleCreateScenario).Methods(http.MethodPost)
	p.HandleFunc("/scenarios/categories/list", s.handleCategories).Methods(http.MethodGet)
	p.HandleFunc("/scenarios/difficulties/list", s.handleDifficulties).Methods(http.MethodGet)
	p.HandleFunc("/scenarios/{id}", s.handleGetScenario).Methods(http.MethodGet)
	p.HandleFunc("/scenarios/{id}", s.handleUpdateScenario).Methods(http.MethodPut)
	p.HandleFunc("/scenarios/{id}", s.handleDeleteScenario).Methods(http.MethodDelete)
	p.HandleFunc("/scenarios/{id}/progress", s.handleScenarioProgress).Methods(http.MethodGet)

	p.HandleFunc("/diagrams/", s.handleListDiagrams).Methods(http.MethodGet)
	p.HandleFunc("/diagrams/", s.handleCreateDiagram).Methods(http.MethodPost)
	p.HandleFunc("/diagrams/{id}", s.handleGetDiagram).Methods(http.MethodGet)
	p.HandleFunc("/diagrams/{id}", s.handleUpdateDiagram).Methods(http.MethodPut)
	p.HandleFunc("/diagrams/{id}", s.handleDeleteDiagram).Methods(http.MethodDelete)
	p.HandleFunc("/diagrams/{id}/submit", s.handleSubmitDiagram).Methods(http.MethodPost)
	p.HandleFunc("/diagrams/{id}/duplicate", s.handleDuplicateDiagram).Methods(http.MethodPost)

	p.HandleFunc("/scoring/validate", s.handleValidate).Methods(http.MethodPost)
	p.HandleFunc("/scoring/score", s.handleScore).Methods(http.MethodPost)
	p.HandleFunc("/scoring/history", s.handleHistory).Methods(http.MethodGet)
	p.HandleFunc("/scoring/stats", s.handleStats).Methods(http.MethodGet)
	p.HandleFunc("/scoring/feedback/{id}", s.handleFeedback).Methods(http.MethodGet)
	p.HandleFunc("/scoring/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)

	p.HandleFunc("/learning/paths", s.handleLearningPaths).Methods(http.MethodGet)
	p.HandleFunc("/learning/paths/{id}/enroll", s.handleEnroll).Methods(http.MethodPost)
	p.HandleFunc("/learning/progress", s.handleLearningProgress).Methods(http.MethodGet)
	p.HandleFunc("/learning/achievements", s.handleLearningAchievements).Methods(http.MethodGet)
	p.HandleFunc("/learning/recommendations", s.handleRecommendations).Methods(http.MethodGet)

	p.HandleFunc("/analytics/dashboard", s.handleDashboard).Methods(http.MethodGet)
	p.HandleFunc("/analytics/performance-timeline", s.handleTimeline).Methods(http.MethodGet)
	p.HandleFunc("/analytics/learning-insights", s.handleInsights).Methods(http.MethodGet)

	p.HandleFunc("/gamification/achievements", s.handleAchievements).Methods(http.MethodGet)
	p.HandleFunc("/gamification/check-achievements", s.handleCheckAchievements).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.Infow("demo server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type ctxKey int

const userKey ctxKey = 0

// requireAuth rejects requests without a known bearer token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || tok == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		s.mu.Lock()
		uid, known := s.state.tokens[tok]
		s.mu.Unlock()
		if !known {
			writeDetail(w, http.StatusUnauthorized, "Invalid authentication credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, uid)))
	})
}

func currentUserID(r *http.Request) string {
	uid, _ := r.Context().Value(userKey).(string)
	return uid
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Threat Modeling Platform Demo API",
		"status":  "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "threat-modeling-platform-demo",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}
