package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/formation"
	"github.com/evetabi/matchsim/internal/service"
	"github.com/gin-gonic/gin"
)

// SnapshotSource is the read side of the running simulation.  Implemented by
// scheduler.Scheduler.
type SnapshotSource interface {
	Snapshot() domain.Snapshot
}

// MatchHandler serves the live match, the session history and the formation
// catalog.
type MatchHandler struct {
	sim     SnapshotSource
	history *service.HistoryService
	catalog *formation.Catalog
}

// NewMatchHandler creates a MatchHandler.
func NewMatchHandler(sim SnapshotSource, history *service.HistoryService, catalog *formation.Catalog) *MatchHandler {
	return &MatchHandler{sim: sim, history: history, catalog: catalog}
}

// GetMatch godoc
// GET /api/match
func (h *MatchHandler) GetMatch(c *gin.Context) {
	respondSuccess(c, http.StatusOK, h.sim.Snapshot())
}

// GetHistory godoc
// GET /api/match/history?page=1&limit=20
// Newest match first.
func (h *MatchHandler) GetHistory(c *gin.Context) {
	page, limit := parsePagination(c)
	records := h.history.Records()
	total := len(records)

	out := make([]domain.MatchRecord, 0, limit)
	if offset := (page - 1) * limit; offset < total {
		for i := total - 1 - offset; i >= 0 && len(out) < limit; i-- {
			out = append(out, records[i])
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    out,
		"summary": h.history.Summary(),
		"meta": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// Export godoc
// GET /api/match/export
// Streams the session history as a CSV attachment.
func (h *MatchHandler) Export(c *gin.Context) {
	name := fmt.Sprintf("matches-%s.csv", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Status(http.StatusOK)
	if err := h.history.WriteCSV(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

// ListFormations godoc
// GET /api/formations
func (h *MatchHandler) ListFormations(c *gin.Context) {
	type entry struct {
		formation.Formation
		Attack  float64 `json:"attack"`
		Defense float64 `json:"defense"`
	}
	sorted := h.catalog.Sorted()
	out := make([]entry, 0, len(sorted))
	for _, f := range sorted {
		out = append(out, entry{
			Formation: f,
			Attack:    formation.AttackStrength(f),
			Defense:   formation.DefenseStrength(f),
		})
	}
	respondSuccess(c, http.StatusOK, out)
}

// ──────────────────────────────────────────────────────────────────────────────
// Odds
// ──────────────────────────────────────────────────────────────────────────────

// OddsHandler serves the current odds board.
type OddsHandler struct {
	oddsSvc *service.OddsService
}

// NewOddsHandler creates an OddsHandler.
func NewOddsHandler(oddsSvc *service.OddsService) *OddsHandler {
	return &OddsHandler{oddsSvc: oddsSvc}
}

// GetBoard godoc
// GET /api/odds
func (h *OddsHandler) GetBoard(c *gin.Context) {
	respondSuccess(c, http.StatusOK, h.oddsSvc.Board())
}

// ──────────────────────────────────────────────────────────────────────────────
// Simulation
// ──────────────────────────────────────────────────────────────────────────────

// simulationTimeout bounds one fast simulation request.
const simulationTimeout = 30 * time.Second

// SimulationHandler serves the fast simulation.
type SimulationHandler struct {
	simSvc *service.SimulationService
}

// NewSimulationHandler creates a SimulationHandler.
func NewSimulationHandler(simSvc *service.SimulationService) *SimulationHandler {
	return &SimulationHandler{simSvc: simSvc}
}

// Run godoc
// POST /api/simulations
// Body: {"home":"4-3-3","away":"5-3-2","matches":1000,"seed":42}
func (h *SimulationHandler) Run(c *gin.Context) {
	var req service.SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), simulationTimeout)
	defer cancel()

	res, err := h.simSvc.Simulate(ctx, req)
	if err != nil {
		respondDomainError(c, err, "simulation failed")
		return
	}
	respondSuccess(c, http.StatusOK, res)
}
