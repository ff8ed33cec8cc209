package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/evetabi/matchsim/internal/api/middleware"
	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/service"
	"github.com/gin-gonic/gin"
)

// Controller drives the simulation.  Implemented by scheduler.Scheduler.
type Controller interface {
	SnapshotSource
	Restart(ctx context.Context, total int) error
	SetSpeed(ctx context.Context, m float64) (float64, error)
	Stop(ctx context.Context) error
}

// ControlHandler serves the operator control endpoints.
type ControlHandler struct {
	ctrl   Controller
	logger *slog.Logger
}

// NewControlHandler creates a ControlHandler.
func NewControlHandler(ctrl Controller, logger *slog.Logger) *ControlHandler {
	return &ControlHandler{ctrl: ctrl, logger: logger}
}

// Restart godoc
// POST /api/control/restart [JWT]
// Body: {"total_matches":5}
func (h *ControlHandler) Restart(c *gin.Context) {
	var body struct {
		TotalMatches int `json:"total_matches" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	if err := h.ctrl.Restart(c.Request.Context(), body.TotalMatches); err != nil {
		respondDomainError(c, err, "could not restart simulation")
		return
	}
	h.logger.Info("operator restarted simulation",
		"operator", middleware.GetSubject(c), "total_matches", body.TotalMatches)
	respondSuccess(c, http.StatusOK, h.ctrl.Snapshot())
}

// SetSpeed godoc
// POST /api/control/speed [JWT]
// Body: {"multiplier":2.5}
// The value is clamped to the supported range; the applied value is returned.
func (h *ControlHandler) SetSpeed(c *gin.Context) {
	var body struct {
		Multiplier *float64 `json:"multiplier" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	applied, err := h.ctrl.SetSpeed(c.Request.Context(), *body.Multiplier)
	if err != nil {
		respondDomainError(c, err, "could not change speed")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"speed": applied,
		"min":   service.MinSpeed,
		"max":   service.MaxSpeed,
	})
}

// Stop godoc
// POST /api/control/stop [JWT]
func (h *ControlHandler) Stop(c *gin.Context) {
	if err := h.ctrl.Stop(c.Request.Context()); err != nil {
		respondDomainError(c, err, "could not stop simulation")
		return
	}
	h.logger.Info("operator stopped simulation", "operator", middleware.GetSubject(c))
	respondSuccess(c, http.StatusOK, h.ctrl.Snapshot())
}

// ──────────────────────────────────────────────────────────────────────────────
// Auth
// ──────────────────────────────────────────────────────────────────────────────

// AuthHandler issues operator tokens.
type AuthHandler struct {
	opSvc *service.OperatorService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(opSvc *service.OperatorService) *AuthHandler {
	return &AuthHandler{opSvc: opSvc}
}

// Token godoc
// POST /api/auth/token
// Body: {"username":"operator","password":"..."}
func (h *AuthHandler) Token(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	resp, err := h.opSvc.Login(req)
	if err != nil {
		if domain.IsAuthError(err) {
			respondError(c, http.StatusUnauthorized, domain.ReasonCode(err), err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not issue token")
		return
	}
	respondSuccess(c, http.StatusOK, resp)
}
