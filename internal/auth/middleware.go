package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextUserID is the gin context key holding the authenticated user id.
// The rate limiter and idempotency middleware read the same key.
const ContextUserID = "userID"

const contextEmail = "userEmail"

// Optional authenticates the request when an Authorization header is present.
// No header means an anonymous caller. A header that does not carry a valid
// bearer token is rejected with 401.
func Optional(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		if !authenticate(c, v, header) {
			return
		}
		c.Next()
	}
}

// Required rejects requests without a valid bearer token.
func Required(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); ok {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if header == "" {
			unauthorized(c, "authorization required")
			return
		}
		if !authenticate(c, v, header) {
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, if any.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

func authenticate(c *gin.Context, v *Verifier, header string) bool {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		unauthorized(c, "invalid token")
		return false
	}
	claims, err := v.Verify(token)
	if err != nil {
		unauthorized(c, "invalid token")
		return false
	}
	c.Set(ContextUserID, claims.Subject)
	if claims.Email != "" {
		c.Set(contextEmail, claims.Email)
	}
	return true
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "unauthorized",
		"message":    msg,
	})
}
