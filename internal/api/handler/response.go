package handler

import (
	"net/http"
	"strconv"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/gin-gonic/gin"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard response helpers
// ──────────────────────────────────────────────────────────────────────────────

// respondSuccess writes {"success": true, "data": data} with the given status.
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes {"success": false, "error": msg, "code": code}.
func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// respondList writes {"success": true, "data": items, "meta": {...}}.
func respondList(c *gin.Context, items interface{}, total, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// respondDomainError maps err onto a status through the domain predicates and
// uses its reason code.  Errors outside the domain taxonomy become a 500 with
// fallback as the message.
func respondDomainError(c *gin.Context, err error, fallback string) {
	code := domain.ReasonCode(err)
	switch {
	case domain.IsAuthError(err):
		respondError(c, http.StatusUnauthorized, code, err.Error())
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, code, err.Error())
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, code, err.Error())
	case code == "ERR_INSUFFICIENT_BALANCE":
		respondError(c, http.StatusPaymentRequired, code, err.Error())
	case code == "ERR_ARCHIVE_DISABLED":
		respondError(c, http.StatusServiceUnavailable, code, err.Error())
	case code != "ERR_INTERNAL":
		respondError(c, http.StatusBadRequest, code, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, code, fallback)
	}
}

// maxPage bounds the page param so (page-1)*limit cannot overflow.
const maxPage = 100000

// parsePagination reads ?page= and ?limit= with defaults 1 and 20.
func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return
}
