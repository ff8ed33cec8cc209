package api

import (
	"log/slog"
	"net/http"

	"github.com/evetabi/matchsim/internal/api/handler"
	"github.com/evetabi/matchsim/internal/api/middleware"
	"github.com/evetabi/matchsim/internal/config"
	"github.com/evetabi/matchsim/internal/formation"
	"github.com/evetabi/matchsim/internal/service"
	"github.com/evetabi/matchsim/internal/ws"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	Ctrl        handler.Controller
	OddsSvc     *service.OddsService
	BetSvc      *service.BetService
	HistorySvc  *service.HistoryService
	SimSvc      *service.SimulationService
	OperatorSvc *service.OperatorService
	Catalog     *formation.Catalog
	Hub         *ws.Hub // optional
	Cfg         *config.Config
	Logger      *slog.Logger
}

// SetupRouter creates the public Gin engine with all routes and rate limits,
// wrapped in the CORS handler.
func SetupRouter(deps RouterDeps) http.Handler {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── Health check & metrics ───────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if !deps.Cfg.IsProd() {
		pprof.Register(r)
	}

	// ── Handlers ─────────────────────────────────────────────────────────────
	matchH := handler.NewMatchHandler(deps.Ctrl, deps.HistorySvc, deps.Catalog)
	oddsH := handler.NewOddsHandler(deps.OddsSvc)
	betH := handler.NewBetHandler(deps.BetSvc)
	simH := handler.NewSimulationHandler(deps.SimSvc)
	ctrlH := handler.NewControlHandler(deps.Ctrl, deps.Logger)
	authH := handler.NewAuthHandler(deps.OperatorSvc)

	// ── Rate limiters ─────────────────────────────────────────────────────────
	authRL := middleware.RateLimitMiddleware(5) // 5 req/s per IP for token requests
	betRL := middleware.RateLimitMiddleware(30) // 30 req/s per IP for bet endpoints
	simRL := middleware.RateLimitMiddleware(2)  // simulations are CPU-bound

	api := r.Group("/api")
	{
		// ── Match (public) ───────────────────────────────────────────────────
		match := api.Group("/match")
		{
			match.GET("", matchH.GetMatch)
			match.GET("/history", matchH.GetHistory)
			match.GET("/export", matchH.Export)
		}
		api.GET("/formations", matchH.ListFormations)
		api.GET("/odds", oddsH.GetBoard)

		// ── Ledger ───────────────────────────────────────────────────────────
		bets := api.Group("/bets")
		bets.Use(betRL)
		{
			bets.POST("", betH.PlaceBet)
			bets.GET("", betH.ListBets)
			bets.GET("/:id", betH.GetBet)
		}
		api.GET("/balance", betH.GetBalance)

		api.POST("/simulations", simRL, simH.Run)

		// ── Operator auth (strict rate limit) ────────────────────────────────
		api.POST("/auth/token", authRL, authH.Token)

		// ── Control (JWT) ────────────────────────────────────────────────────
		control := api.Group("/control")
		control.Use(middleware.OperatorMiddleware(deps.OperatorSvc))
		{
			control.POST("/restart", ctrlH.Restart)
			control.POST("/speed", ctrlH.SetSpeed)
			control.POST("/stop", ctrlH.Stop)
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return corsHandler(deps.Cfg).Handler(r)
}

// corsHandler allows the configured origins, or any origin when none are
// configured outside production.
func corsHandler(cfg *config.Config) *cors.Cors {
	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 && !cfg.IsProd() {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	})
}
