package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sool-market/service-reservation/internal/platform/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(verifier *auth.JWTVerifier) *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(verifier), SessionMiddleware())
	r.GET("/whoami", func(c *gin.Context) {
		id, _ := GetIdentity(c)
		sid, _ := GetSessionID(c)
		ctxID, _ := auth.IdentityFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user": id.UserID, "session": sid, "ctx_user": ctxID.UserID})
	})
	return r
}

func TestAuthMiddleware_AcceptsValidToken(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "77",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	req.Header.Set(SessionHeader, "6f1c7a8e-7d3f-4a55-9b0e-2f6f0b2b7c11")
	w := httptest.NewRecorder()
	newRouter(auth.NewJWTVerifier("secret")).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"77","session":"6f1c7a8e-7d3f-4a55-9b0e-2f6f0b2b7c11","ctx_user":"77"}`, w.Body.String())
}

func TestAuthMiddleware_RejectsMissingToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	newRouter(auth.NewJWTVerifier("secret")).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionMiddleware_RejectsMalformedID(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "77"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	req.Header.Set(SessionHeader, "not-a-uuid")
	w := httptest.NewRecorder()
	newRouter(auth.NewJWTVerifier("secret")).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
