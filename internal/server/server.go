package server

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/akolanti/TranscriptRAG/internal/adapter/utils"
	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/handlers"
	"github.com/akolanti/TranscriptRAG/internal/middleware"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
)

type Server struct {
	server *http.Server
	logger *logger_i.Logger
}

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	StopWorkers      func()
	CloseServices    func()
}

// Routes mounts every API route behind the middleware chain.
func Routes(h *handlers.Handler, chain *middleware.Chain) http.Handler {
	r := utils.NewRouter()

	r.Router.Get("/", chain.Wrap(h.GetHandler))

	r.Router.Post("/chat/message", chain.Wrap(h.ChatHandler))
	r.Router.Post("/chat/sessions", chain.Wrap(h.CreateSessionHandler))
	r.Router.Get("/chat/sessions", chain.Wrap(h.ListSessionsHandler))
	r.Router.Get("/chat/sessions/{id}", chain.Wrap(h.GetSessionHandler))
	r.Router.Delete("/chat/sessions/{id}", chain.Wrap(h.DeleteSessionHandler))
	r.Router.Post("/chat/sessions/{id}/export", chain.Wrap(h.ExportSessionHandler))

	r.Router.Post("/index/reindex", chain.Wrap(h.ReindexHandler))
	r.Router.Get("/index/stats", chain.Wrap(h.IndexStatsHandler))
	r.Router.Delete("/index", chain.Wrap(h.ClearIndexHandler))
	r.Router.Get("/status/{id}", chain.Wrap(h.GetStatusHandler))
	return r.Router
}

func CreateServer(listenAddr string, handler http.Handler) *Server {
	return &Server{
		server: &http.Server{
			Addr:         listenAddr,
			Handler:      handler,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		logger: logger_i.NewLogger("Server"),
	}
}

// Start blocks serving requests until the server is shut down.
func (s *Server) Start() {
	s.logger.Info("Server is listening", "address", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Server crashed", "error", err, "addr", s.server.Addr)
	}
}

func (s *Server) ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	s.logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		s.server.SetKeepAlivesEnabled(false)

		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Error("Could not shutdown gracefully", "error", err)
		}

		shutdownParams.StopWorkers()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Shut down gracefully")
	case <-ctx.Done():
		s.logger.Error("Force shut down")
		os.Exit(1)
	}
}
