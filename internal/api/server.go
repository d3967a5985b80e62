package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/instiboard/discussiond/internal/api/auth"
	"github.com/instiboard/discussiond/internal/identity"
	"github.com/instiboard/discussiond/internal/realtime"
)

// Server represents the discussiond API server
type Server struct {
	echo *echo.Echo
	port int
}

// ServerDeps carries the collaborators the server wires into its handlers.
type ServerDeps struct {
	Store     EventSource
	Broker    realtime.Broker
	Resolver  identity.Resolver
	Notifier  MentionNotifier
	JWTSecret string
}

// NewServer creates a new API server
func NewServer(port int, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo: e,
		port: port,
	}

	server.setupRoutes(deps)

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes(deps ServerDeps) {
	// Health check endpoint
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	handler := NewDiscussionHandler(deps.Store, deps.Broker, deps.Resolver, deps.Notifier)

	// API v1 group, authenticated
	v1 := s.echo.Group("/api/v1", auth.RequireAuth(deps.JWTSecret))

	v1.GET("/threads/:id/events", handler.GetThreadEvents)
	v1.GET("/threads/:id/view", handler.GetThreadView)
	v1.GET("/threads/:id/audit", handler.GetThreadAudit)
	v1.GET("/threads/:id/stream", handler.StreamThread)

	v1.POST("/threads/:id/comments", handler.PostComment)
	v1.POST("/threads/:id/replies", handler.PostReply)
	v1.POST("/threads/:id/reactions", handler.PostReaction)
	v1.POST("/threads/:id/pin", handler.TogglePin)
}

// Start begins the API server
func (s *Server) Start() error {
	// Start server in a goroutine
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
