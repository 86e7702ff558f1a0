// Package server exposes the platform over a local Unix-domain socket: a
// chi-routed REST surface authenticated by either the shared service token
// or a per-user CLI token.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/remotedev/rdv/internal/auth"
	"github.com/remotedev/rdv/internal/insight"
	"github.com/remotedev/rdv/internal/lifecycle"
	"github.com/remotedev/rdv/internal/memory"
	"github.com/remotedev/rdv/internal/monitoring"
	"github.com/remotedev/rdv/internal/terminal"
)

// Config carries the paths and collaborators a Server needs. SocketPath
// and PIDPath get no defaults here; cmd/rdvd fills them from internal/app's
// `.remote-dev` layout.
type Config struct {
	SocketPath       string
	PIDPath          string
	ServiceTokenPath string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
}

// Server is the Unix-socket HTTP server for the whole platform.
type Server struct {
	cfg          Config
	db           *sql.DB
	router       *chi.Mux
	httpSrv      *http.Server
	listener     net.Listener
	serviceToken *auth.ServiceToken
	generator    *insight.Generator
	monitoring   *monitoring.Service
	lifecycle    *lifecycle.Coordinator
	terminal     terminal.Adapter
}

// New wires every collaborator and builds the chi router. It does not bind
// a socket yet — call Start for that.
func New(cfg Config, db *sql.DB, embedder memory.Embedder, term terminal.Adapter) *Server {
	generator := insight.NewGenerator(db, embedder)
	s := &Server{
		cfg:        cfg,
		db:         db,
		generator:  generator,
		monitoring: monitoring.NewService(db, generator, term),
		lifecycle:  lifecycle.NewCoordinator(db, embedder),
		terminal:   term,
	}

	if cfg.ServiceTokenPath != "" {
		if tok, err := auth.ReadServiceTokenFile(cfg.ServiceTokenPath); err == nil {
			s.serviceToken = tok
		} else {
			slog.Warn("no service token on disk yet; minting one", "path", cfg.ServiceTokenPath, "error", err)
			tok, genErr := auth.GenerateServiceToken()
			if genErr == nil {
				if writeErr := tok.WriteToFile(cfg.ServiceTokenPath); writeErr != nil {
					slog.Error("failed to persist newly minted service token", "error", writeErr)
				}
				s.serviceToken = tok
			}
		}
	}

	s.router = chi.NewRouter()
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(slogRequestLogger)
}

// slogRequestLogger mirrors chi's own middleware.Logger but emits
// structured log/slog records instead of chi's plain-text line, matching
// the rest of the platform's logging.
func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.listSessions)
			r.Post("/", s.createSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Patch("/", s.updateSessionStatus)
				r.Get("/scrollback", s.getSessionScrollback)
				r.Post("/exec", s.execSessionCommand)
			})
		})

		r.Route("/folders", func(r chi.Router) {
			r.Get("/", s.listFolders)
			r.Post("/", s.createFolder)
			r.Post("/reorder", s.reorderFolders)
			r.Route("/{folderID}", func(r chi.Router) {
				r.Get("/", s.getFolder)
				r.Delete("/", s.deleteFolder)
				r.Get("/children", s.listChildFolders)
				r.Get("/orchestrator", s.getFolderOrchestrator)
				r.Route("/knowledge", func(r chi.Router) {
					r.Get("/", s.getFolderKnowledge)
					r.Patch("/", s.patchFolderKnowledge)
					r.Delete("/", s.deleteFolderKnowledge)
				})
				r.Get("/hooks", s.listFolderHooks)
			})
		})

		r.Route("/orchestrators", func(r chi.Router) {
			r.Get("/", s.listOrchestrators)
			r.Post("/", s.createOrchestrator)
			r.Route("/{orchestratorID}", func(r chi.Router) {
				r.Get("/", s.getOrchestrator)
				r.Patch("/", s.updateOrchestrator)
				r.Get("/stalled-sessions", s.getStalledSessions)
				r.Route("/monitoring", func(r chi.Router) {
					r.Post("/start", s.startMonitoring)
					r.Post("/stop", s.stopMonitoring)
					r.Get("/status", s.monitoringStatus)
				})
			})
		})

		r.Get("/user", s.getCurrentUser)

		r.Route("/tokens", func(r chi.Router) {
			r.Get("/", s.listTokens)
			r.Post("/", s.createToken)
			r.Delete("/{tokenID}", s.revokeToken)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Start binds the Unix socket (cleaning up a stale one first), writes the
// PID file, and begins serving in the background. Call Wait or Shutdown to
// stop it.
func (s *Server) Start() error {
	alreadyRunning, err := removeStaleFiles(s.cfg.PIDPath, s.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("clean up previous run: %w", err)
	}
	if alreadyRunning {
		return fmt.Errorf("server already running (pid file %s points at a live process)", s.cfg.PIDPath)
	}

	ln, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("listen on unix socket %s: %w", s.cfg.SocketPath, err)
	}
	if err := os.Chmod(s.cfg.SocketPath, 0o600); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}
	s.listener = ln

	if err := writePIDFile(s.cfg.PIDPath); err != nil {
		_ = ln.Close()
		return fmt.Errorf("write pid file: %w", err)
	}

	s.httpSrv = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("server stopped unexpectedly", "error", err)
		}
	}()
	slog.Info("server listening", "socket", s.cfg.SocketPath)
	return nil
}

// Shutdown stops accepting new connections, drains in-flight requests, ends
// every monitoring goroutine, and removes the PID and socket files.
func (s *Server) Shutdown(ctx context.Context) error {
	s.monitoring.StopAllStallChecking()

	var shutdownErr error
	if s.httpSrv != nil {
		shutdownErr = s.httpSrv.Shutdown(ctx)
	}
	_ = cleanupFiles(s.cfg.PIDPath, s.cfg.SocketPath)
	return shutdownErr
}

// Router exposes the chi router for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
