package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/printkit/qr-postcard/config"
	"github.com/printkit/qr-postcard/postcard"
)

// maxRequestBytes bounds the whole multipart request; the image payload
// itself is capped at postcard.MaxUploadBytes, the extra megabyte covers
// multipart framing and the other form fields.
const maxRequestBytes = postcard.MaxUploadBytes + 1<<20

// Server holds the dependencies for all HTTP handlers.
type Server struct {
	Cfg       *config.Config
	Generator postcard.Generator
	Log       *slog.Logger
	Version   string
}

// NewRouter returns a fully configured chi router with all API routes.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(requestLogger(s.Log))

	// Docs & health
	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)

	// Generation
	r.With(limitRequestBody, s.requireAPIKey).Post("/generate-qr-postcard", s.handleGenerate)

	return r
}

// --- helpers ----------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusFor maps a pipeline error code to its HTTP status.
func statusFor(code postcard.Code) int {
	switch code {
	case postcard.CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case postcard.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// --- middleware --------------------------------------------------------------

// limitRequestBody rejects oversized requests from the Content-Length
// header before reading anything, then enforces the same cap on the
// body for chunked uploads that carry no length.
func limitRequestBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > maxRequestBytes {
			writeError(w, http.StatusRequestEntityTooLarge,
				"request body too large: maximum upload size is 16 MiB")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
		next.ServeHTTP(w, r)
	})
}

// requireAPIKey enforces the configured API key via the X-API-Key header
// or the api_key form field. An empty configured key disables auth.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Cfg.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.FormValue("api_key")
		}
		if key != s.Cfg.APIKey {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
			next.ServeHTTP(w, r)
		})
	}
}
