package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/statio/backend/internal/policy"
	"github.com/statio/backend/pkg/response"
)

const (
	// ContextPrincipal is the key for the authenticated policy.Principal in gin context.
	ContextPrincipal = "principal"
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
)

// PrincipalResolver turns a bearer token into a principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (policy.Principal, error)
}

// JWT returns a middleware that resolves the bearer token and stores the principal in context.
func JWT(resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		p, err := resolver.Resolve(c.Request.Context(), parts[1])
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Set(ContextPrincipal, p)
		c.Set(ContextUserID, p.UserID)
		c.Next()
	}
}

// Principal returns the principal stored by JWT. It panics when the route is not behind JWT.
func Principal(c *gin.Context) policy.Principal {
	return c.MustGet(ContextPrincipal).(policy.Principal)
}
