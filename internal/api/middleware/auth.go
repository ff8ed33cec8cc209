package middleware

import (
	"net/http"
	"strings"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/service"
	"github.com/gin-gonic/gin"
)

// ContextKey constants for gin.Context values set by middleware.
const (
	CtxSubject = "subject"
	CtxRole    = "role"
)

// TokenParser validates operator tokens.  Implemented by
// service.OperatorService.
type TokenParser interface {
	ParseToken(tokenString string) (*service.OperatorClaims, error)
}

// ──────────────────────────────────────────────────────────────────────────────
// OperatorMiddleware
// ──────────────────────────────────────────────────────────────────────────────

// OperatorMiddleware validates the Bearer token in the Authorization header.
// On success it stores the subject and role in the gin context.
func OperatorMiddleware(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   domain.ErrUnauthorized.Error(),
				"code":    domain.ReasonCode(domain.ErrUnauthorized),
			})
			return
		}

		claims, err := parser.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   domain.ErrTokenInvalid.Error(),
				"code":    domain.ReasonCode(domain.ErrTokenInvalid),
			})
			return
		}

		c.Set(CtxSubject, claims.Subject)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// GetSubject retrieves the authenticated operator from the gin context.
// Returns "" if the middleware was not applied.
func GetSubject(c *gin.Context) string {
	v, _ := c.Get(CtxSubject)
	s, _ := v.(string)
	return s
}
