package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"

	"stemlab/internal/accounts"
	"stemlab/internal/library"
	"stemlab/internal/logging"
	"stemlab/internal/mailer"
	"stemlab/internal/separation"
	"stemlab/internal/verification"
)

// Separation is the slice of the orchestrator the HTTP layer needs.
type Separation interface {
	DefaultModel() string
	Process(ctx context.Context, filename string, payload io.Reader, model string) (separation.Result, error)
}

// Options carries the collaborators for a Server.
type Options struct {
	Bind       string
	Separation Separation
	Accounts   *accounts.Store
	Codes      *verification.Cache
	Mailer     *mailer.Mailer
	Library    *library.Store
	Logger     *slog.Logger
}

// Server exposes the HTTP API: separation, account verification, and the
// session library.
type Server struct {
	bind       string
	logger     *slog.Logger
	separation Separation
	accounts   *accounts.Store
	codes      *verification.Cache
	mailer     *mailer.Mailer
	library    *library.Store

	handler  http.Handler
	listener net.Listener
	server   *http.Server
}

// New builds a server from opts. All collaborators are required.
func New(opts Options) (*Server, error) {
	bind := strings.TrimSpace(opts.Bind)
	if bind == "" {
		return nil, errors.New("server requires a bind address")
	}
	if opts.Separation == nil || opts.Accounts == nil || opts.Codes == nil || opts.Mailer == nil || opts.Library == nil {
		return nil, errors.New("server requires all collaborators")
	}

	srv := &Server{
		bind:       bind,
		logger:     logging.WithComponent(opts.Logger, "api-server"),
		separation: opts.Separation,
		accounts:   opts.Accounts,
		codes:      opts.Codes,
		mailer:     opts.Mailer,
		library:    opts.Library,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/separate", srv.handleSeparate)
	mux.HandleFunc("POST /api/auth/request-code", srv.handleRequestCode)
	mux.HandleFunc("POST /api/auth/verify", srv.handleVerify)
	mux.HandleFunc("GET /api/library", srv.handleLibraryList)
	mux.HandleFunc("POST /api/library", srv.handleLibrarySave)
	mux.HandleFunc("GET /api/library/{id}", srv.handleLibraryGet)
	mux.HandleFunc("GET /api/library/{id}/bundle", srv.handleBundle)
	mux.HandleFunc("GET /healthz", srv.handleHealth)

	// The browser client is served from a different origin.
	corsWrapper := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	srv.handler = srv.logRequests(corsWrapper.Handler(mux))

	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		// Uploads and model runs are slow; the write timeout has to cover a
		// full separation.
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return srv, nil
}

// Start binds the listener and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr reports the bound listener address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler exposes the routed handler chain, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}
