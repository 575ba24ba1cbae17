package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const principalGinKey = "principal"

// GinMiddleware rejects requests without a valid bearer token and puts the principal
// both on the gin context and on the request context.
func GinMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := ParseBearer(c.GetHeader("Authorization"), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(principalGinKey, p)
		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// UserID is the authenticated user of c; empty outside GinMiddleware.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(principalGinKey); ok {
		if p, ok := v.(*Principal); ok {
			return p.UserID
		}
	}
	return ""
}
