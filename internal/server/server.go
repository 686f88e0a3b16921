package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storyForge/internal/chat"
	"storyForge/internal/config"
	"storyForge/internal/database"
	"storyForge/internal/entity"
	"storyForge/internal/llm"
	"storyForge/internal/logger"
	"storyForge/internal/metrics"
	"storyForge/internal/validation"
)

const shutdownTimeout = 10 * time.Second

// ChatService обработка запросов чата.
type ChatService interface {
	Handle(ctx context.Context, clientKey string, req *validation.ChatRequest) (*chat.Reply, error)
	Preview(ctx context.Context, clientKey string, req *validation.ChatRequest) (*chat.Prepared, error)
}

// Store то, что HTTP слой читает и меняет в хранилище напрямую.
type Store interface {
	Get(ctx context.Context, id entity.ID) (entity.Entity, error)
	SoftDelete(ctx context.Context, id entity.ID) error
	Restore(ctx context.Context, id entity.ID) error
	Trash(ctx context.Context) ([]database.TrashItem, error)
	ListQueue(ctx context.Context) ([]database.QueueItem, error)
}

type Deps struct {
	Chat     ChatService
	Store    Store
	Breakers *llm.BreakerPool
	Metrics  *metrics.Collector
}

type Server struct {
	cfg      *config.Cfg
	log      *logger.Zap
	chat     ChatService
	store    Store
	breakers *llm.BreakerPool
	metrics  *metrics.Collector
	engine   *gin.Engine
}

func New(cfg *config.Cfg, log *logger.Zap, d Deps) *Server {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		cfg:      cfg,
		log:      log,
		chat:     d.Chat,
		store:    d.Store,
		breakers: d.Breakers,
		metrics:  d.Metrics,
	}
	s.engine = s.routes()
	return s
}

// Handler роутер для встраивания и тестов.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestID())
	r.Use(s.accessLog())

	r.GET("/health", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := r.Group("/api")
	api.POST("/chat", s.limitBody(), s.handleChat)
	api.POST("/context/preview", s.limitBody(), s.handlePreview)

	api.GET("/entities/:id", s.getEntity)
	api.DELETE("/entities/:id", s.deleteEntity)
	api.GET("/development-queue", s.listQueue)
	api.GET("/trash", s.listTrash)
	api.POST("/trash/:id/restore", s.restoreEntity)

	return r
}

// Run слушает до отмены ctx, затем корректно завершает соединения.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.App.Host, s.cfg.App.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Сервер запущен", zap.String("addr", addr))
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

	s.log.Info("Остановка сервера")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки сервера: %w", err)
	}
	return nil
}
