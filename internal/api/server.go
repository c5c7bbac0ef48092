// Package api provides the HTTP API server implementation for the Live
// Gateway. It wires the Gin engine, middleware chain, and the
// OpenAI-compatible endpoint handlers, and manages the server lifecycle.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/livegateway/livegateway/internal/access"
	"github.com/livegateway/livegateway/internal/api/handlers"
	"github.com/livegateway/livegateway/internal/api/handlers/openai"
	"github.com/livegateway/livegateway/internal/api/middleware"
	"github.com/livegateway/livegateway/internal/bridge"
	"github.com/livegateway/livegateway/internal/config"
	"github.com/livegateway/livegateway/internal/logging"
	log "github.com/sirupsen/logrus"
)

// Server represents the main API server that handles HTTP requests.
type Server struct {
	cfg           *config.Config
	engine        *gin.Engine
	httpServer    *http.Server
	openAIHandler *openai.OpenAIAPIHandler
	requestLogger logging.RequestLogger
}

// NewServer creates a new API server instance with the given configuration,
// bridge, access rules, and request logger. The middleware chain is ordered
// so that panic recovery wraps everything, request logging sees every
// request, and the access gate runs before any handler touches the body.
func NewServer(cfg *config.Config, b *bridge.Bridge, allowList *access.List, trustedProxies map[string]struct{}, requestLogger logging.RequestLogger) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(logging.GinLogrusLogger())
	engine.Use(logging.GinLogrusRecovery())
	engine.Use(middleware.RequestLoggingMiddleware(requestLogger))
	engine.Use(corsMiddleware())
	engine.Use(middleware.AccessControl(cfg, allowList, trustedProxies))

	baseHandler := handlers.NewBaseAPIHandlers(cfg, b)

	s := &Server{
		cfg:           cfg,
		engine:        engine,
		openAIHandler: openai.NewOpenAIAPIHandler(baseHandler),
		requestLogger: requestLogger,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: engine,
		},
	}

	s.setupRoutes()

	return s
}

// setupRoutes registers the API endpoints. Chat completions require a bearer
// token; model listing and health do not.
func (s *Server) setupRoutes() {
	s.engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "LIVE GATEWAY\n\nOpenAI-compatible gateway to realtime live sessions.\n\n"+
			"POST /v1/chat/completions\nGET  /v1/models\nGET  /health\n")
	})

	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "live-gateway",
		})
	})

	v1 := s.engine.Group("/v1")
	{
		v1.GET("/models", s.openAIHandler.OpenAIModels)
		v1.POST("/chat/completions", AuthMiddleware(), s.openAIHandler.ChatCompletions)
	}
}

// AuthMiddleware extracts the bearer token from the Authorization header and
// stores it in the request context for the handler to forward. The token is
// the backend credential; the gateway holds no keys of its own. A missing or
// malformed header is rejected before any backend work happens.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handlers.ErrorResponse{
				Error: handlers.ErrorDetail{
					Message: "Missing Authorization header",
					Type:    "authentication_error",
				},
			})
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handlers.ErrorResponse{
				Error: handlers.ErrorDetail{
					Message: "Invalid Authorization header format, expected 'Bearer <api-key>'",
					Type:    "authentication_error",
				},
			})
			return
		}

		c.Set("apiKey", token)
		c.Next()
	}
}

// corsMiddleware handles CORS preflight and response headers so browser
// clients can call the gateway directly.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Start begins listening for and serving HTTP requests. It blocks until the
// server stops.
func (s *Server) Start() error {
	log.Infof("API server starting on port %d", s.cfg.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server, waiting for in-flight requests to
// finish until the context expires.
func (s *Server) Stop(ctx context.Context) error {
	log.Info("shutting down API server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Handler exposes the underlying engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}
