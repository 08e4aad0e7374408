// Package server exposes the sync protocol and the read views over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/serverdb"
)

// Store is the database behind the server.
type Store interface {
	PullChangesSince(ctx context.Context, userID string, since *time.Time) (*model.PullResponse, error)
	PushChanges(ctx context.Context, userID string, req model.PushRequest) (*model.PushResponse, error)
	ContractsByClient(ctx context.Context, userID string) ([]model.ContractSummary, error)
	NotesForContract(ctx context.Context, userID, contractID string) ([]model.NoteSummary, error)
	NoteByID(ctx context.Context, userID, noteID string) (*model.NoteDetail, error)
	WeeklyTimeEntries(ctx context.Context, userID string, weekStarts []string) ([]model.WeekData, error)
	TimerStatus(ctx context.Context, userID string) (*model.TimerEntry, error)
	Attachment(ctx context.Context, userID, id string) (*serverdb.AttachmentFile, error)
	Ping(ctx context.Context) error
}

var _ Store = (*serverdb.Store)(nil)

// Config configures the HTTP server.
type Config struct {
	Addr string
	// Tokens maps bearer tokens to user ids.
	Tokens map[string]string
	// CORSOrigins lists allowed browser origins. Empty allows any.
	CORSOrigins []string
}

// Server serves the API.
type Server struct {
	store  Store
	cfg    Config
	logger *slog.Logger
	engine *gin.Engine
}

// New builds the router.
func New(store Store, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{store: store, cfg: cfg, logger: logger}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(s.logger))

	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Disposition", "Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(s.cfg.CORSOrigins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = s.cfg.CORSOrigins
		cc.AllowCredentials = true
	}
	r.Use(cors.New(cc))

	r.GET("/healthz", s.health)

	api := r.Group("/api")
	api.Use(Auth(s.cfg.Tokens))
	{
		api.GET("/sync/pull", s.pull)
		api.POST("/sync/push", s.push)
		api.GET("/contracts-by-client", s.contractsByClient)
		api.GET("/notes", s.notesForContract)
		api.GET("/notes/:id", s.noteByID)
		api.GET("/time-entries/weekly", s.weeklyTimeEntries)
		api.GET("/timer/status", s.timerStatus)
		api.GET("/attachments/:id", s.attachment)
	}
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
