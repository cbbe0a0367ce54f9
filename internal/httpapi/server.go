package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/infraprobe/internal/genai"
	apimw "github.com/hamed0406/infraprobe/internal/httpapi/middleware"
	"github.com/hamed0406/infraprobe/internal/metrics"
	"github.com/hamed0406/infraprobe/internal/repo"
)

// Answerer answers one free-text question. *genai.Assistant implements it.
type Answerer interface {
	Answer(ctx context.Context, q string) genai.Answer
}

type Server struct {
	Logger    *zap.Logger
	Assistant Answerer
	History   repo.HistoryStore // optional; enables /api/results
	Service   string
	DataAPI   bool
}

func NewServer(l *zap.Logger, a Answerer, h repo.HistoryStore) *Server {
	return &Server{Logger: l, Assistant: a, History: h, Service: "genai-api"}
}

// Router wires the public and admin routes. Empty origins allows any origin.
func (s *Server) Router(keys apimw.Keys, origins []string, rpm, burst int) http.Handler {
	r := chi.NewRouter()
	r.Use(apimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.accessLog)
	if len(origins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-API-Key", apimw.RequestIDHeader},
			ExposedHeaders: []string{apimw.RequestIDHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(rpm, burst))
		r.Use(apimw.RequireAny(keys))
		r.Post("/genai", s.handleAsk)
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RequireAdmin(keys))
		r.Get("/api/results", s.handleResults)
	})

	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", apimw.RequestIDFrom(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "healthy",
		"service":          s.Service,
		"data_api_enabled": s.DataAPI,
	})
}

type askPayload struct {
	Question string `json:"question"`
	Message  string `json:"message"`
}

// Text prefers question and accepts message for older clients.
func (p askPayload) Text() string {
	if q := strings.TrimSpace(p.Question); q != "" {
		return q
	}
	return strings.TrimSpace(p.Message)
}

// maxAskBody caps a question request body.
const maxAskBody = 64 << 10

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAskBody)
	var p askPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	q := p.Text()
	if q == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	ans := s.Assistant.Answer(r.Context(), q)
	ans.RequestID = apimw.RequestIDFrom(r.Context())
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history store not configured")
		return
	}
	env := r.URL.Query().Get("environment")
	if env == "" {
		env = "dev"
	}
	rs, err := s.History.Latest(r.Context(), env)
	if err != nil {
		s.Logger.Error("history_latest_failed", zap.String("environment", env), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"environment": env, "results": rs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
