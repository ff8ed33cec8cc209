package handler

import (
	"context"
	"net/http"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/repository"
	"github.com/gin-gonic/gin"
)

// LedgerArchive aggregates the archived bets.  Implemented by
// repository.BetRepository.
type LedgerArchive interface {
	Finance(ctx context.Context) (*repository.FinanceReport, error)
	Exposure(ctx context.Context) ([]repository.ExposureRow, error)
}

// FinanceHandler serves /admin/finance endpoints.
type FinanceHandler struct {
	ledger LedgerArchive // nil when no database is configured
}

// NewFinanceHandler creates a FinanceHandler.
func NewFinanceHandler(ledger LedgerArchive) *FinanceHandler {
	return &FinanceHandler{ledger: ledger}
}

// Report godoc
// GET /admin/finance/report
func (h *FinanceHandler) Report(c *gin.Context) {
	if h.ledger == nil {
		respondArchiveError(c, domain.ErrArchiveDisabled)
		return
	}
	rep, err := h.ledger.Finance(c.Request.Context())
	if err != nil {
		respondArchiveError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, rep)
}
