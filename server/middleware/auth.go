package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/trendora/platform/auth"
	"github.com/trendora/platform/errors"
)

const principalKey = "principal"

// RequireUser returns a Gin middleware that validates the Bearer token and
// stores the resulting principal in the request context.
func RequireUser(v auth.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWith(c, errors.Unauthorized("Authorization header required"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWith(c, errors.Unauthorized("Invalid authorization header format"))
			return
		}

		principal, err := v.Validate(parts[1])
		if err != nil {
			abortWith(c, errors.Unauthorized("Invalid token"))
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireRole returns a Gin middleware that enforces a role on the principal
// stored by RequireUser. It must be registered after RequireUser.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			abortWith(c, errors.Unauthorized("Authentication required"))
			return
		}
		if !principal.HasRole(role) {
			abortWith(c, errors.Forbidden("Insufficient role"))
			return
		}
		c.Next()
	}
}

// PrincipalFrom extracts the authenticated principal from the Gin context.
func PrincipalFrom(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

func abortWith(c *gin.Context, err *errors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
}
