package web

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"problem-relay/config"
	"problem-relay/database"
	"problem-relay/metrics"
	"problem-relay/web/handlers"
	"problem-relay/web/middleware"
	"problem-relay/web/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PageRoutes are the client-side router paths; each serves the SPA entry.
var PageRoutes = []string{"/", "/translate", "/check", "/solution", "/solve", "/chat"}

type Server struct {
	router  *gin.Engine
	logger  *zap.Logger
	config  *config.Config
	store   database.SessionStore
	relay   *services.RelayService
	pdf     *services.PDFService
	limiter *middleware.ClientRateLimiter
	metrics *metrics.Prom
}

func NewServer(cfg *config.Config, logger *zap.Logger, store database.SessionStore, llm services.Completer, prom *metrics.Prom) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	limiter, err := middleware.NewClientRateLimiter(middleware.RateLimiterConfig{
		RequestsPerMinute: cfg.RateLimitRequestsPerMin,
		BurstSize:         cfg.RateLimitBurstSize,
		CacheSize:         cfg.RateLimitCacheSize,
	}, logger)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger, prom))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	server := &Server{
		router:  router,
		logger:  logger,
		config:  cfg,
		store:   store,
		relay:   services.NewRelayService(llm, store, prom, logger),
		pdf:     services.NewPDFService(logger),
		limiter: limiter,
		metrics: prom,
	}

	server.setupRoutes()
	return server, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	relayHandler := handlers.NewRelayHandler(s.relay, s.pdf, s.logger)
	sessionHandler := handlers.NewSessionHandler(s.store, s.logger)
	modelsHandler := handlers.NewModelsHandler(s.config.ModelsFile, s.logger)

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.router.Group("/api")
	limitBody := bodyLimit(s.config.MaxBodyBytes)
	rateLimit := middleware.RateLimitMiddleware(s.limiter)

	api.POST("/translate", limitBody, rateLimit, relayHandler.Translate)
	api.POST("/translate/pdf", bodyLimit(handlers.MaxPDFUploadBytes), rateLimit, relayHandler.TranslatePDF)
	api.POST("/chat", limitBody, rateLimit, relayHandler.Chat)
	api.GET("/models", modelsHandler.List)

	api.POST("/sessions", sessionHandler.Create)
	sessions := api.Group("/sessions/:id", middleware.SessionParam())
	sessions.GET("", sessionHandler.Get)
	sessions.POST("", limitBody, sessionHandler.Save)
	sessions.POST("/clear", sessionHandler.Clear)
	sessions.GET("/transcript", sessionHandler.Transcript)

	s.setupPages()
}

// setupPages serves the built frontend when STATIC_DIR holds one.
func (s *Server) setupPages() {
	index := filepath.Join(s.config.StaticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		s.logger.Info("No frontend build found, serving API only", zap.String("static_dir", s.config.StaticDir))
		return
	}

	s.router.Static("/assets", filepath.Join(s.config.StaticDir, "assets"))
	serveIndex := func(c *gin.Context) { c.File(index) }
	for _, route := range PageRoutes {
		s.router.GET(route, serveIndex)
	}
}

func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting web server", zap.String("address", addr))

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
