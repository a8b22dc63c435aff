// Package opshttp exposes the operator endpoints of a running trader.
package opshttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"spotbot/internal/logger"
	"spotbot/internal/trader"

	"github.com/gin-gonic/gin"
)

var log = logger.Component("ops")

// Controller is the part of the trader the ops surface drives.
type Controller interface {
	Snapshot() trader.Status
	Resume(ctx context.Context, operator string) error
	Pause(ctx context.Context, reason string) error
}

// Server serves /healthz and /api/*.
type Server struct {
	addr   string
	router *gin.Engine
}

func NewServer(addr string, ctl Controller) (*Server, error) {
	if ctl == nil {
		return nil, errors.New("ops server requires a controller")
	}
	if addr == "" {
		addr = ":9992"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	NewRouter(ctl).Register(router.Group("/api"))
	return &Server{addr: addr, router: router}, nil
}

// Handler returns the underlying router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	log.Infof("ops server listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}
