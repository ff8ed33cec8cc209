package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/odds"
	"github.com/gin-gonic/gin"
)

// MatchArchive is the read side of the match archive.  Implemented by
// repository.MatchRepository.
type MatchArchive interface {
	Historical(ctx context.Context) (odds.Historical, error)
	List(ctx context.Context, limit, offset int) ([]domain.MatchRecord, error)
	Count(ctx context.Context) (int, error)
}

// BoardReader loads the last published odds board.  Implemented by
// cache.OddsCache.
type BoardReader interface {
	LoadBoard(ctx context.Context) (domain.OddsBoard, bool, error)
}

// DashboardHandler serves the /admin/dashboard and /admin/matches endpoints.
type DashboardHandler struct {
	archive MatchArchive // nil when no database is configured
	boards  BoardReader  // nil when Redis is not configured
	prior   odds.Prior
}

// NewDashboardHandler creates a DashboardHandler.  prior is what the live
// engine prices from.
func NewDashboardHandler(archive MatchArchive, boards BoardReader, prior odds.Prior) *DashboardHandler {
	return &DashboardHandler{archive: archive, boards: boards, prior: prior}
}

// split is a result distribution in percent.
type split struct {
	HomeWin float64 `json:"red_win"`
	Draw    float64 `json:"draw"`
	AwayWin float64 `json:"blue_win"`
}

// Dashboard godoc
// GET /admin/dashboard
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	if h.archive == nil {
		respondArchiveError(c, domain.ErrArchiveDisabled)
		return
	}
	ctx := c.Request.Context()

	// ── Archive against prior ────────────────────────────────────────────────
	hist, err := h.archive.Historical(ctx)
	if err != nil {
		respondArchiveError(c, err)
		return
	}

	observed := gin.H{
		"matches":        hist.TotalMatches,
		"avg_red_goals":  hist.AvgHomeGoals,
		"avg_blue_goals": hist.AvgAwayGoals,
	}
	if hist.TotalMatches > 0 {
		n := float64(hist.TotalMatches)
		observed["results"] = split{
			HomeWin: pct(float64(hist.HomeWins) / n),
			Draw:    pct(float64(hist.Draws) / n),
			AwayWin: pct(float64(hist.AwayWins) / n),
		}
		if p, err := odds.NewPrior(hist); err == nil {
			observed["red_goals"] = percentages(p.HomeGoals)
			observed["blue_goals"] = percentages(p.AwayGoals)
		}
	}

	// ── Live board ───────────────────────────────────────────────────────────
	var board any
	if h.boards != nil {
		if b, ok, err := h.boards.LoadBoard(ctx); err == nil && ok {
			board = gin.H{
				"match_id":     b.MatchID,
				"match_number": b.MatchNumber,
				"version":      b.Version,
				"open":         b.Open,
				"live":         b.Live,
				"updated_at":   b.UpdatedAt,
			}
		}
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"timestamp": time.Now().UTC(),
		"observed":  observed,
		"prior": gin.H{
			"results": split{
				HomeWin: pct(h.prior.HomeWin),
				Draw:    pct(h.prior.Draw),
				AwayWin: pct(h.prior.AwayWin),
			},
			"red_goals":  percentages(h.prior.HomeGoals),
			"blue_goals": percentages(h.prior.AwayGoals),
		},
		"board": board,
	})
}

// Matches godoc
// GET /admin/matches?page=1&limit=50
func (h *DashboardHandler) Matches(c *gin.Context) {
	if h.archive == nil {
		respondArchiveError(c, domain.ErrArchiveDisabled)
		return
	}
	page, limit := adminPagination(c)
	ctx := c.Request.Context()

	recs, err := h.archive.List(ctx, limit, (page-1)*limit)
	if err != nil {
		respondArchiveError(c, err)
		return
	}
	total, err := h.archive.Count(ctx)
	if err != nil {
		respondArchiveError(c, err)
		return
	}
	respondList(c, recs, total, page, limit)
}

func pct(p float64) float64 {
	return float64(int(p*10000+0.5)) / 100
}

func percentages(pmf []float64) []float64 {
	out := make([]float64, len(pmf))
	for i, p := range pmf {
		out[i] = pct(p)
	}
	return out
}
