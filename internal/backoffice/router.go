package backoffice

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/evetabi/matchsim/internal/api/middleware"
	"github.com/evetabi/matchsim/internal/backoffice/handler"
	"github.com/evetabi/matchsim/internal/config"
	"github.com/evetabi/matchsim/internal/odds"
	"github.com/gin-gonic/gin"
)

// BackofficeDeps bundles every dependency needed for the admin router.
// Archive, Ledger and Boards stay nil when their backend is not configured.
type BackofficeDeps struct {
	Tokens  middleware.TokenParser
	Archive handler.MatchArchive
	Ledger  handler.LedgerArchive
	Boards  handler.BoardReader
	Prior   odds.Prior
	Cfg     *config.Config
	Logger  *slog.Logger
}

// SetupBackofficeRouter creates the admin Gin engine on the backoffice port.
func SetupBackofficeRouter(deps BackofficeDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(ipAllowlistMiddleware(deps.Cfg.Server.BackofficeAllowedIPs, deps.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	dashH := handler.NewDashboardHandler(deps.Archive, deps.Boards, deps.Prior)
	financeH := handler.NewFinanceHandler(deps.Ledger)
	riskH := handler.NewRiskHandler(deps.Ledger)

	admin := r.Group("/admin")
	admin.Use(middleware.OperatorMiddleware(deps.Tokens))
	{
		admin.GET("/dashboard", dashH.Dashboard)
		admin.GET("/matches", dashH.Matches)
		admin.GET("/finance/report", financeH.Report)
		admin.GET("/risk/exposure", riskH.Exposure)
	}

	return r
}

// ── IP allowlist middleware ───────────────────────────────────────────────────

// ipAllowlistMiddleware blocks requests from IPs not in the allowlist.
// allowedIPs is a comma-separated string; empty means allow all.
func ipAllowlistMiddleware(allowedIPs string, logger *slog.Logger) gin.HandlerFunc {
	if allowedIPs == "" {
		return func(c *gin.Context) { c.Next() } // dev mode: no restriction
	}

	allowed := make(map[string]bool)
	for _, ip := range strings.Split(allowedIPs, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			allowed[ip] = true
		}
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if !allowed[clientIP] {
			logger.Warn("backoffice: blocked ip", "ip", clientIP, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "access denied: your IP is not allowlisted",
				"code":    "ERR_FORBIDDEN",
			})
			return
		}
		c.Next()
	}
}
