package handler

import (
	"net/http"
	"sort"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BetHandler serves bet placement and ledger endpoints.
type BetHandler struct {
	betSvc *service.BetService
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(betSvc *service.BetService) *BetHandler {
	return &BetHandler{betSvc: betSvc}
}

// PlaceBet godoc
// POST /api/bets
// Body: {"market":"1x2","outcome":"red-win","stake":"10.00"}
func (h *BetHandler) PlaceBet(c *gin.Context) {
	var body struct {
		Market  string `json:"market"  binding:"required"`
		Outcome string `json:"outcome" binding:"required"`
		Stake   string `json:"stake"   binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	stake, err := decimal.NewFromString(body.Stake)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_STAKE", "stake must be a decimal string")
		return
	}

	bet, err := h.betSvc.PlaceBet(c.Request.Context(), domain.PlaceBetRequest{
		Market:  domain.MarketID(body.Market),
		Outcome: body.Outcome,
		Stake:   stake,
	})
	if err != nil {
		respondDomainError(c, err, "could not place bet")
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{
		"bet":     bet,
		"balance": h.betSvc.Balance(),
	})
}

// ListBets godoc
// GET /api/bets?page=1&limit=20
func (h *BetHandler) ListBets(c *gin.Context) {
	page, limit := parsePagination(c)
	bets := h.betSvc.Bets(limit, (page-1)*limit)
	respondList(c, bets, len(bets), page, limit)
}

// GetBet godoc
// GET /api/bets/:id
func (h *BetHandler) GetBet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_BET_ID", "invalid bet id")
		return
	}
	bet, err := h.betSvc.GetBet(id)
	if err != nil {
		respondDomainError(c, err, "could not fetch bet")
		return
	}
	respondSuccess(c, http.StatusOK, bet)
}

// exposureEntry is the pending liability on one outcome.
type exposureEntry struct {
	Market    domain.MarketID `json:"market"`
	Outcome   string          `json:"outcome"`
	Liability decimal.Decimal `json:"liability"`
}

// GetBalance godoc
// GET /api/balance
func (h *BetHandler) GetBalance(c *gin.Context) {
	exposure := h.betSvc.Exposure()
	entries := make([]exposureEntry, 0, len(exposure))
	for k, v := range exposure {
		entries = append(entries, exposureEntry{Market: k.Market, Outcome: k.Outcome, Liability: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Liability.GreaterThan(entries[j].Liability)
	})
	respondSuccess(c, http.StatusOK, gin.H{
		"balance":  h.betSvc.Balance(),
		"exposure": entries,
	})
}
