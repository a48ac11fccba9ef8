package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/academy-engine/internal/catalog"
	"github.com/terra-clan/academy-engine/internal/config"
	"github.com/terra-clan/academy-engine/internal/content"
	"github.com/terra-clan/academy-engine/internal/leads"
	"github.com/terra-clan/academy-engine/internal/learning"
	"github.com/terra-clan/academy-engine/internal/models"
	"github.com/terra-clan/academy-engine/internal/search"
	"github.com/terra-clan/academy-engine/internal/services"
	"github.com/terra-clan/academy-engine/internal/storage"
)

// Dependencies are the services the API serves
type Dependencies struct {
	Repo       storage.Repository
	Catalog    *catalog.Loader
	Content    *content.Service
	Learning   *learning.Service
	Leads      *leads.Service
	Dispatcher *leads.Dispatcher
	Indexer    *search.Indexer
	Health     *services.Registry
}

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	catalog        *catalog.Loader
	content        *content.Service
	learning       *learning.Service
	leads          *leads.Service
	dispatcher     *leads.Dispatcher
	indexer        *search.Indexer
	health         *services.Registry
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Dependencies) *Server {
	health := deps.Health
	if health == nil {
		health = services.NewRegistry()
	}

	s := &Server{
		config:         cfg,
		catalog:        deps.Catalog,
		content:        deps.Content,
		learning:       deps.Learning,
		leads:          deps.Leads,
		dispatcher:     deps.Dispatcher,
		indexer:        deps.Indexer,
		health:         health,
		authMiddleware: NewAuthMiddleware(deps.Repo),
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

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.With(middleware.Timeout(10*time.Second)).Get("/health", s.handleHealth)
	r.With(middleware.Timeout(10*time.Second)).Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		// Long-lived WebSocket, outside the request timeout
		r.Get("/enrollments/{token}/playback", s.handlePlaybackWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			// Public site
			r.Get("/courses", s.handleListCourses)
			r.Get("/courses/{slug}", s.handleGetCourse)
			r.Post("/courses/{slug}/enroll", s.handleEnroll)
			r.Get("/instructors", s.handleListInstructors)
			r.Get("/testimonials", s.handleListTestimonials)
			r.Get("/pages/{slug}", s.handleGetPage)
			r.Get("/search", s.handleSearch)
			r.Post("/leads", s.handleSubmitLead)

			// Student progress (enrollment token auth)
			r.Get("/enrollments/{token}/progress", s.handleGetProgress)
			r.Post("/enrollments/{token}/lessons/{lessonId}/watch", s.handleRecordWatch)
			r.Post("/enrollments/{token}/lessons/{lessonId}/complete", s.handleCompleteLesson)

			// Back office (API key auth)
			r.Route("/admin", func(r chi.Router) {
				r.Use(s.authMiddleware.Authenticate)

				r.With(s.authMiddleware.RequirePermission(models.PermContentWrite)).Post("/cache/purge", s.handlePurgeCache)
				r.With(s.authMiddleware.RequirePermission(models.PermContentWrite)).Post("/search/reindex", s.handleReindex)
				r.With(s.authMiddleware.RequirePermission(models.PermEnrollmentsRead)).Get("/courses/{slug}/enrollments", s.handleListEnrollments)
				r.With(s.authMiddleware.RequirePermission(models.PermLeadsWrite)).Post("/leads/dispatch", s.handleDispatchLeads)
			})
		})
	})

	s.router = r
}

func (s *Server) allowedOrigins() []string {
	if len(s.config.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.config.AllowedOrigins
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
