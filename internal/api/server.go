// Package api hosts the local control server that launcher front-ends talk to.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cryovex/mcauth/internal/api/handlers/management"
	"github.com/cryovex/mcauth/internal/buildinfo"
	"github.com/cryovex/mcauth/internal/config"
	"github.com/cryovex/mcauth/internal/logging"
	sdkauth "github.com/cryovex/mcauth/sdk/auth"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Server is the control API bound to the configured host and port.
type Server struct {
	engine  *gin.Engine
	server  *http.Server
	handler *management.Handler
}

// NewServer builds the router. baseCtx bounds login attempts started over HTTP.
func NewServer(baseCtx context.Context, cfg *config.Config, mgr *sdkauth.Manager) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logging.GinLogrusLogger(), logging.GinLogrusRecovery())

	s := &Server{
		engine:  engine,
		handler: management.NewHandler(baseCtx, mgr),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": buildinfo.Version})
	})

	v0 := s.engine.Group("/v0/auth")
	{
		v0.POST("/login", s.handler.PostLogin)
		v0.GET("/login", s.handler.GetLogin)
		v0.DELETE("/login", s.handler.DeleteLogin)
		v0.GET("/session", s.handler.GetSession)
		v0.DELETE("/session", s.handler.DeleteSession)
	}
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Stop is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	log.Infof("control API listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("control API failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	log.Debug("stopping control API")
	return s.server.Shutdown(ctx)
}
