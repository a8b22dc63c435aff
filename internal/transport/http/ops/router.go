package opshttp

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"spotbot/internal/trader"

	"github.com/gin-gonic/gin"
)

const requestTimeout = 10 * time.Second

// Router wires the /api routes to a Controller.
type Router struct {
	ctl Controller
}

func NewRouter(ctl Controller) *Router {
	return &Router{ctl: ctl}
}

func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/status", r.handleStatus)
	group.POST("/resume", r.handleResume)
	group.POST("/pause", r.handlePause)
}

type resumeRequest struct {
	Operator string `json:"operator"`
}

type pauseRequest struct {
	Reason string `json:"reason"`
}

func (r *Router) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, r.ctl.Snapshot())
}

func (r *Router) handleResume(c *gin.Context) {
	var req resumeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	operator := strings.TrimSpace(req.Operator)
	if operator == "" {
		operator = "http:" + c.ClientIP()
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()
	if err := r.ctl.Resume(ctx, operator); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	log.Infof("trading resumed by %s", operator)
	c.JSON(http.StatusOK, gin.H{"status": "resumed", "operator": operator})
}

func (r *Router) handlePause(c *gin.Context) {
	var req pauseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "manual"
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()
	if err := r.ctl.Pause(ctx, reason); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "paused", "reason": reason})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, trader.ErrNotPaused):
		return http.StatusConflict
	case errors.Is(err, trader.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
