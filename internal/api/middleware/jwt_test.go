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
	"github.com/yoockh/mockinterview/config"
)

func sign(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func protected(cfg config.AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", JWTAuth(cfg), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})
	return r
}

func call(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "s3cret", Audience: "mockinterview"}
	r := protected(cfg)
	valid := jwt.RegisteredClaims{
		Subject:   "user-1",
		Audience:  jwt.ClaimStrings{"mockinterview"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	w := call(r, sign(t, "s3cret", valid))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, call(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, sign(t, "other", valid)).Code)

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	assert.Equal(t, http.StatusUnauthorized, call(r, sign(t, "s3cret", expired)).Code)

	wrongAud := valid
	wrongAud.Audience = jwt.ClaimStrings{"someone-else"}
	assert.Equal(t, http.StatusUnauthorized, call(r, sign(t, "s3cret", wrongAud)).Code)

	noSub := valid
	noSub.Subject = ""
	assert.Equal(t, http.StatusUnauthorized, call(r, sign(t, "s3cret", noSub)).Code)
}

func TestJWTAuth_MissingSecret(t *testing.T) {
	r := protected(config.AuthConfig{})
	assert.Equal(t, http.StatusInternalServerError, call(r, "whatever").Code)
}
