package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/adgedenkers/mythos-arcturus-sub000/internal/model"
	"github.com/adgedenkers/mythos-arcturus-sub000/internal/session"
)

// maxRequestBody is the maximum allowed request body size (25 MB, room for
// a full-resolution photo upload).
const maxRequestBody int64 = 25 << 20

// ItemReader serves the read-only item endpoints.
type ItemReader interface {
	GetItem(ctx context.Context, id int64) (*model.ItemWithImages, error)
	ListItems(ctx context.Context, status string) ([]model.Item, error)
}

// Server holds the HTTP handlers and dependencies.
type Server struct {
	sessions *session.Manager
	items    ItemReader
	tempDir  string
	mux      *http.ServeMux
}

// New creates a new API server. Uploaded photos are staged under tempDir
// until their analysis consumes them.
func New(sessions *session.Manager, items ItemReader, tempDir string) *Server {
	srv := &Server{sessions: sessions, items: items, tempDir: tempDir, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(limitBody(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/sessions/{user}/enter", s.handleEnter)
	s.mux.HandleFunc("POST /api/sessions/{user}/photos", s.handleAddPhoto)
	s.mux.HandleFunc("POST /api/sessions/{user}/undo", s.handleUndo)
	s.mux.HandleFunc("POST /api/sessions/{user}/exit", s.handleExit)
	s.mux.HandleFunc("GET /api/sessions/{user}", s.handleStatus)
	s.mux.HandleFunc("GET /api/sessions/{user}/summary", s.handleSummary)
	s.mux.HandleFunc("GET /api/items", s.handleListItems)
	s.mux.HandleFunc("GET /api/items/{id}", s.handleGetItem)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// corsMiddleware sets CORS headers. The allowed origin is configurable via the
// CORS_ORIGIN environment variable; defaults to "*" for development.
func corsMiddleware(next http.Handler) http.Handler {
	origin := os.Getenv("CORS_ORIGIN")
	if origin == "" {
		origin = "*" // TODO: restrict in production
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody restricts the request body to maxRequestBody bytes.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
