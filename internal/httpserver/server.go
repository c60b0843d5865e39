package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vsource/hero/internal/model"
	"go.uber.org/zap"
)

// Banner is the banner contract required by the HTTP API.
type Banner interface {
	model.Remote
	Subscribe() (<-chan model.Snapshot, func())
	// SlideOf resolves a snapshot against the deck of its own mount.
	SlideOf(model.Snapshot) (model.Slide, bool)
}

// Config configures the HTTP API server.
type Config struct {
	Addr   string
	Banner Banner
	// Stats is optional; /api/hero/stats answers 404 without it.
	Stats model.StatsQuerier
	// AssetsDir is the site root for slide images; its images/ directory
	// is served under /images.
	AssetsDir string
	Logger    *zap.Logger
}

// Server provides the HTTP API for the hero banner.
type Server struct {
	addr      string
	banner    Banner
	stats     model.StatsQuerier
	assetsDir string
	logger    *zap.Logger
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server.
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "0.0.0.0:3000"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      cfg.Addr,
		banner:    cfg.Banner,
		stats:     cfg.Stats,
		assetsDir: cfg.AssetsDir,
		logger:    cfg.Logger.Named("http"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/api/health", s.handleHealth)

	hero := r.Group("/api/hero")
	hero.GET("", s.handleHero)
	hero.GET("/slides", s.handleSlides)
	hero.GET("/events", s.handleEvents)
	hero.GET("/stats", s.handleStats)
	hero.POST("/next", s.handleNext)
	hero.POST("/previous", s.handlePrevious)
	hero.POST("/goto/:index", s.handleGoTo)
	hero.POST("/ready/:index", s.handleReady)
	hero.POST("/touch", s.handleTouch)
	hero.POST("/visibility", s.handleVisibility)
	hero.POST("/hover", s.handleHover)
	hero.POST("/cta", s.handleCTA)

	// Slide images are site paths ("/images/hero1.jpg") under the assets
	// root, the same root the preloader resolves them against.
	if s.assetsDir != "" {
		r.Static("/images", filepath.Join(s.assetsDir, "images"))
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	s.routes(r)

	s.server = &http.Server{
		Handler:           r,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.startTime = time.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the HTTP server. Open event streams end when
// the base context is cancelled.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
