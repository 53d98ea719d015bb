package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sool-market/service-reservation/internal/platform/apperr"
	"github.com/sool-market/service-reservation/internal/platform/auth"
	"github.com/sool-market/service-reservation/internal/platform/response"
)

const (
	SessionHeader = "X-Session-ID"
	identityKey   = "identity"
	sessionKey    = "session_id"
)

// AuthMiddleware verifies the bearer token and stores the caller identity on
// both the gin context and the request context.
func AuthMiddleware(verifier *auth.JWTVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := auth.ParseBearer(c.GetHeader("Authorization"))
		if err != nil {
			response.Error(c, apperr.NewUnauthorizedError("missing bearer token"))
			return
		}
		id, err := verifier.Verify(raw)
		if err != nil {
			response.Error(c, apperr.NewUnauthorizedError("invalid access token"))
			return
		}

		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// SessionMiddleware requires a well-formed booking session id header.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(SessionHeader)
		if _, err := uuid.Parse(raw); err != nil {
			response.BadRequest(c, "missing or malformed "+SessionHeader+" header")
			return
		}
		c.Set(sessionKey, raw)
		c.Next()
	}
}

// GetIdentity returns the caller identity set by AuthMiddleware.
func GetIdentity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

// GetSessionID returns the session id set by SessionMiddleware.
func GetSessionID(c *gin.Context) (string, bool) {
	v := c.GetString(sessionKey)
	return v, v != ""
}
