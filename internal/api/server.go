package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paygate/internal/config"
	"paygate/internal/pricing"
	"paygate/internal/verify"
)

// Server is the HTTP surface of the gateway.
type Server struct {
	cfg     config.Config
	service *verify.Service
	oracle  *pricing.Oracle
	logger  *zap.Logger

	httpServer *http.Server
}

// NewServer builds the API server and its routes.
func NewServer(cfg config.Config, service *verify.Service, oracle *pricing.Oracle, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		service: service,
		oracle:  oracle,
		logger:  logger,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealth)

	v1 := router.Group("/api/v1")
	v1.GET("/price", s.handlePrice)
	v1.GET("/convert", s.handleConvert)
	v1.GET("/convert-usdc", s.handleConvertUSDC)
	v1.GET("/networks", s.handleNetworks)
	v1.POST("/verify", requireAPIKey(cfg.APIKey), s.handleVerify)

	s.httpServer = &http.Server{
		Addr:    cfg.Listen,
		Handler: router,
		// verification can poll the chain for ~attempts*delay
		WriteTimeout: time.Duration(cfg.VerifyAttempts)*cfg.VerifyDelay + 30*time.Second,
		ReadTimeout:  15 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.logger.Info("api listening", zap.String("addr", s.cfg.Listen))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// requireAPIKey gates mutating endpoints behind a shared secret header.
func requireAPIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" || c.GetHeader("X-Api-Key") != key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid or missing API key",
			})
			return
		}
		c.Next()
	}
}
