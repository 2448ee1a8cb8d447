package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/port"
	"github.com/fiapx/fiapx-screenshot-service/internal/usecase"
	"go.uber.org/zap"
)

// ZipLinker hands out download URLs for finished archives.
type ZipLinker interface {
	PresignZip(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

type ServerConfig struct {
	Port           int
	Capture        *usecase.CaptureService
	Logger         *zap.Logger
	TempDir        string
	MaxUploadBytes int64

	// Queue-backed routes are mounted only when Submit is set.
	Submit         *usecase.SubmitJobUseCase
	Jobs           port.JobRepository
	Links          ZipLinker
	DownloadURLTTL time.Duration
}

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(cfg ServerConfig) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           NewRouter(cfg),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
