package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tetuya0525/article-ingest-service/internal/article"
	"github.com/tetuya0525/article-ingest-service/internal/config"
	"github.com/tetuya0525/article-ingest-service/internal/ingest"
	"github.com/tetuya0525/article-ingest-service/internal/ratelimit"
	"github.com/tetuya0525/article-ingest-service/internal/telemetry"
)

// Server wires HTTP handlers to the ingest service.
type Server struct {
	router chi.Router
	svc    *ingest.Service
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(svc *ingest.Service, cfg config.Config, logger *zap.Logger) *Server {
	s := &Server{
		svc:    svc,
		cfg:    cfg,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(corsMiddleware)
	r.Use(telemetry.Middleware)
	r.Use(timeoutMiddleware(cfg.RequestTimeout()))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Ingest.RateLimitRPS > 0 {
			limiter := ratelimit.New(ratelimit.Config{
				DefaultRPS:   cfg.Ingest.RateLimitRPS,
				DefaultBurst: cfg.Ingest.RateLimitBurst,
			})
			r.Use(rateLimitMiddleware(limiter))
		}
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}

		r.Post("/", s.ingestArticle)

		r.Route("/v1/articles", func(r chi.Router) {
			r.Post("/", s.ingestArticle)
			r.Get("/", s.listArticles)
			r.Get("/{article_id}", s.getArticle)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ready(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Staging store is not reachable.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type ingestResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	DocumentID string `json:"documentId"`
}

func (s *Server) ingestArticle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Ingest.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Could not parse request body as JSON")
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var sub article.Submission
	if err := json.Unmarshal(body, &sub); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && strings.HasPrefix(typeErr.Field, "content") {
			writeError(w, http.StatusBadRequest, "Field 'content' must be an object with a 'rawText' key")
			return
		}
		writeError(w, http.StatusBadRequest, "Could not parse request body as JSON")
		return
	}

	receipt, err := s.svc.Ingest(r.Context(), sub)
	if err != nil {
		var verr *article.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		s.logger.Error("article ingest failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "An internal error occurred while writing to the database.")
		return
	}

	writeJSON(w, http.StatusCreated, ingestResponse{
		Status:     "success",
		Message:    "Article successfully ingested.",
		DocumentID: receipt.DocumentID,
	})
}

func (s *Server) getArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "article_id")
	doc, err := s.svc.GetArticle(r.Context(), id)
	if err != nil {
		if errors.Is(err, article.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Article not found")
			return
		}
		s.logger.Error("article fetch failed", zap.String("article_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "An internal error occurred while reading from the database.")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type listResponse struct {
	Articles []article.Document `json:"articles"`
	Count    int                `json:"count"`
}

func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	filter := article.ListFilter{Limit: s.cfg.Ingest.ListLimitDefault}

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = article.Status(status)
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid query parameter: limit")
			return
		}
		if limit > s.cfg.Ingest.ListLimitMax {
			limit = s.cfg.Ingest.ListLimitMax
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, "Invalid query parameter: offset")
			return
		}
		filter.Offset = offset
	}

	docs, err := s.svc.ListArticles(r.Context(), filter)
	if err != nil {
		s.logger.Error("article list failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "An internal error occurred while reading from the database.")
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Articles: docs, Count: len(docs)})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware mirrors the browser contract of the staging endpoint: every
// response allows any origin, and OPTIONS requests are answered as preflight
// without reaching the handlers.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			h := w.Header()
			h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Set("Access-Control-Max-Age", "3600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func rateLimitMiddleware(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			if !limiter.Allow(host) {
				telemetry.ObserveRateLimited()
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": msg})
}
