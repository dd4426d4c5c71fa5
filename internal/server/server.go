// Package server exposes the assessment and chat pipelines over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/ng12agent/internal/model"
	"github.com/ppiankov/ng12agent/internal/pipeline"
)

// Assessor runs one patient assessment
type Assessor interface {
	Assess(ctx context.Context, patientID string, topK int) (model.AssessResult, error)
}

// ChatService answers questions and manages sessions
type ChatService interface {
	Chat(ctx context.Context, sessionID, message string, topK int) (model.ChatResult, error)
	History(ctx context.Context, sessionID string) (model.HistoryResult, error)
	Clear(ctx context.Context, sessionID string) (model.ClearResult, error)
}

// Options configures the HTTP server
type Options struct {
	Addr         string
	APIKey       string   // Empty disables bearer auth
	CORSOrigins  []string // Empty disables CORS headers
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Info         map[string]string // Extra fields reported by /health
	Logger       *zap.Logger
}

// Server is the ng12agent HTTP API
type Server struct {
	assessor  Assessor
	chat      ChatService
	retriever pipeline.Retriever
	opts      Options
	logger    *zap.Logger
}

// New creates a new server. retriever may be nil, which disables /debug/retrieve.
func New(assessor Assessor, chat ChatService, retriever pipeline.Retriever, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Addr == "" {
		opts.Addr = ":8000"
	}
	return &Server{
		assessor:  assessor,
		chat:      chat,
		retriever: retriever,
		opts:      opts,
		logger:    logger,
	}
}

// Handler returns the routed handler wrapped in middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /assess", s.handleAssess)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /chat/{id}/history", s.handleHistory)
	mux.HandleFunc("DELETE /chat/{id}", s.handleClear)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.retriever != nil {
		mux.HandleFunc("POST /debug/retrieve", s.handleDebugRetrieve)
	}

	// recovery -> request id -> cors -> auth -> logging -> mux
	var handler http.Handler = mux
	handler = logMiddleware(s.logger, handler)
	handler = authMiddleware(s.opts.APIKey, handler)
	handler = corsMiddleware(s.opts.CORSOrigins, handler)
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(s.logger, handler)
	return handler
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.opts.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.opts.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return <-errCh
}
