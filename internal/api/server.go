package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"musicscan/internal/identification"
	"musicscan/internal/logging"
	"musicscan/internal/scan"
	"musicscan/internal/services"
	"musicscan/internal/store"
)

// Identifier runs the identification pipeline.
type Identifier interface {
	Identify(ctx context.Context, req identification.Request) (*scan.Outcome, error)
}

// SessionStore reads stored sessions.
type SessionStore interface {
	ListSessions(ctx context.Context, filter store.ListFilter) ([]scan.SessionSummary, error)
	GetSessionDetail(ctx context.Context, id string) (*scan.SessionDetail, error)
	Ping(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	Identifier     Identifier
	Sessions       SessionStore
	Token          string
	AllowedOrigins []string
	Model          string
	Logger         *slog.Logger
}

// Server routes HTTP requests to the pipeline and the session store.
type Server struct {
	identifier Identifier
	sessions   SessionStore
	token      string
	model      string
	logger     *slog.Logger
	router     chi.Router
}

const maxRequestBody = 1 << 20

// NewServer builds the router.
func NewServer(opts Options) *Server {
	s := &Server{
		identifier: opts.Identifier,
		sessions:   opts.Sessions,
		token:      opts.Token,
		model:      opts.Model,
		logger:     logging.NewComponentLogger(opts.Logger, "api-server"),
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestContext)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/api/health", s.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(s.token))
		r.Post("/api/scan", s.handleScan)
		r.Get("/api/sessions", s.handleListSessions)
		r.Get("/api/sessions/{id}", s.handleGetSession)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestContext copies the chi request id into the context fields used by logging.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(services.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.WithContext(r.Context(), s.logger).Debug("http request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.Int("bytes", ww.BytesWritten()),
			logging.Duration("duration", time.Since(started)))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}

// statusForError maps error markers to HTTP status codes.
func statusForError(err error) int {
	switch services.Kind(err) {
	case "validation":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "external_api":
		return http.StatusBadGateway
	case "timeout":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
