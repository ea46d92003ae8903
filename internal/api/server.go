package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/playops-hq/playops-engine/internal/ai"
	"github.com/playops-hq/playops-engine/internal/blob"
	"github.com/playops-hq/playops-engine/internal/cache"
	"github.com/playops-hq/playops-engine/internal/catalog"
	"github.com/playops-hq/playops-engine/internal/collab"
	"github.com/playops-hq/playops-engine/internal/config"
	"github.com/playops-hq/playops-engine/internal/session"
	"github.com/playops-hq/playops-engine/internal/storage"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	sessionManager session.Manager
	catalogLoader  *catalog.Loader
	collabRegistry *collab.Registry
	cache          *cache.Cache
	aiClient       *ai.Client
	blobClient     *blob.Client
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server. The cache, AI and blob clients are
// optional; their routes return 503 when the collaborator is not configured.
func NewServer(
	cfg config.ServerConfig,
	manager session.Manager,
	loader *catalog.Loader,
	repo storage.Repository,
	registry *collab.Registry,
	c *cache.Cache,
	aiClient *ai.Client,
	blobClient *blob.Client,
) *Server {
	s := &Server{
		config:         cfg,
		sessionManager: manager,
		catalogLoader:  loader,
		collabRegistry: registry,
		cache:          c,
		aiClient:       aiClient,
		blobClient:     blobClient,
		authMiddleware: NewAuthMiddleware(repo),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	// API v1 routes (protected by authentication)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		// The game runner's single entry point
		r.Post("/session-manager", s.handleSessionManager)
		r.Post("/validate-answers", s.handleValidateAnswers)
		r.Post("/compliance-check", s.handleComplianceCheck)
		r.Post("/generate", s.handleGenerate)

		// Catalog browsing
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/domains", s.handleListDomains)
			r.Get("/domains/{id}", s.handleGetDomain)
			r.Get("/domains/{id}/templates", s.handleListTemplates)
			r.Get("/templates/{domain}/{name}", s.handleGetTemplate)
		})

		// Runtime publishing
		r.Route("/runtimes", func(r chi.Router) {
			r.Post("/", s.handlePublishRuntime)
			r.Get("/{id}", s.handleGetRuntime)
		})

		// Sessions: websocket telemetry ingest
		r.Get("/sessions/{id}/events/ws", s.handleSessionEventsWS)

		r.Get("/proofs", s.handleListProofs)
		r.Get("/leaderboard", s.handleLeaderboard)
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
