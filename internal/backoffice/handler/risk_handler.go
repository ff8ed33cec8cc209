package handler

import (
	"net/http"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// RiskHandler serves /admin/risk endpoints.
type RiskHandler struct {
	ledger LedgerArchive // nil when no database is configured
}

// NewRiskHandler creates a RiskHandler.
func NewRiskHandler(ledger LedgerArchive) *RiskHandler {
	return &RiskHandler{ledger: ledger}
}

// Exposure godoc
// GET /admin/risk/exposure
// Returns pending liability per outcome, largest first, and the total.
func (h *RiskHandler) Exposure(c *gin.Context) {
	if h.ledger == nil {
		respondArchiveError(c, domain.ErrArchiveDisabled)
		return
	}
	rows, err := h.ledger.Exposure(c.Request.Context())
	if err != nil {
		respondArchiveError(c, err)
		return
	}
	if rows == nil {
		rows = []repository.ExposureRow{}
	}
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Liability)
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"outcomes":        rows,
		"total_liability": total,
	})
}
