// Package webapi exposes the recommendation workflow over HTTP. The
// transport owns request-level timeouts; an abandoned request is discarded
// by the orchestrator, never persisted half-done.
package webapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/llmcompass/compass/internal/workflow"
)

// Server wires the orchestrator into a gin router.
type Server struct {
	orch   *workflow.Orchestrator
	apiKey string
	log    *slog.Logger
}

// New builds a server. An empty apiKey disables authentication.
func New(orch *workflow.Orchestrator, apiKey string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{orch: orch, apiKey: apiKey, log: log}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	if s.apiKey != "" {
		v1.Use(s.requireAPIKey)
	}
	v1.GET("/health", s.handleHealth)
	v1.POST("/query", s.handleQuery)
	v1.POST("/query/:session_id/clarify", s.handleClarify)

	return router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	if port <= 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background()) //nolint:errcheck
	}()

	s.log.Info("api server listening", "port", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("webapi: %w", err)
	}
	return nil
}

func (s *Server) requireAPIKey(c *gin.Context) {
	if c.GetHeader("X-API-Key") != s.apiKey {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing api key"})
		return
	}
	c.Next()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
