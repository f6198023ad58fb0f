// Package httpapi exposes sessiondex's IPC channel catalog over HTTP:
// one POST route per channel, a health check, Prometheus metrics, and a
// WebSocket indexing-progress feed. It is a thin transport mounted
// alongside (and sharing handlers with) the Unix-socket server.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/sessiondex/sessiondex/internal/httpapi/docs" // swagger docs
	"github.com/sessiondex/sessiondex/internal/applog"
	"github.com/sessiondex/sessiondex/internal/bookmarks"
	"github.com/sessiondex/sessiondex/internal/config"
	"github.com/sessiondex/sessiondex/internal/ipc"
	"github.com/sessiondex/sessiondex/internal/query"
	"github.com/sessiondex/sessiondex/internal/runner"
)

// ErrorResponse is the wire shape of an HTTP-level error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Version is the build version reported by app:getHealth.
// cmd/sessiondexd assigns its own version string (set at link time) to
// it at startup; "dev" is the default otherwise.
var Version = "dev"

// Server serves the channel catalog over HTTP.
type Server struct {
	svc       *query.Service
	bookmarks *bookmarks.DB
	runner    *runner.Runner
	cfg       config.Config

	router   chi.Router
	progress *progressHub
}

// NewServer wires a Server against the already-open query service,
// bookmarks store, and job runner shared with the Unix-socket server.
func NewServer(svc *query.Service, bm *bookmarks.DB, r *runner.Runner, cfg config.Config) *Server {
	s := &Server{
		svc:       svc,
		bookmarks: bm,
		runner:    r,
		cfg:       cfg,
		progress:  newProgressHub(),
	}
	s.router = s.setupRouter()
	return s
}

// Progress returns the server's progress broadcaster, so the daemon
// can publish an event after each runner job completes.
func (s *Server) Progress() *progressHub { return s.progress }

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware)

	r.Get("/api/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/api/indexer/progress", s.handleIndexerProgress)

	for _, channel := range ipc.Channels {
		path := "/api/" + dashPath(channel)
		r.Post(path, s.handleChannel(channel))
	}

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return r
}

// Router returns the chi router, for embedding into a larger mux.
func (s *Server) Router() chi.Router { return s.router }

// ListenAndServe starts serving on addr until the process exits.
func (s *Server) ListenAndServe(addr string) error {
	applog.Log.Infof("httpapi: listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// handleHealth answers app:getHealth over a plain GET, for load
// balancers and desktop-shell liveness probes that can't issue the
// POST channel form.
// @Summary Get daemon health
// @Description Returns daemon status and version
// @Tags app
// @Produce json
// @Success 200 {object} ipc.HealthResponse
// @Router /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ipc.HealthResponse{Status: "ok", Version: Version})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "httpapi: encode response: %v\n", err)
	}
}

func writeError(w http.ResponseWriter, status int, errCode, msg string) {
	writeJSON(w, status, ErrorResponse{Error: errCode, Message: msg})
}

// dashPath turns a channel name like "projects:list" into the
// HTTP-route-safe "projects-list".
func dashPath(channel string) string {
	out := make([]byte, len(channel))
	for i := 0; i < len(channel); i++ {
		if channel[i] == ':' {
			out[i] = '-'
		} else {
			out[i] = channel[i]
		}
	}
	return string(out)
}
