package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/profound-academy/backend/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var key = []byte("test")

func TestGenerateAndValidate(t *testing.T) {
	token, err := auth.GenerateJWT("u1", "Ada", time.Hour, key)
	require.NoError(t, err)

	claims, err := auth.ValidateJWT(token, key)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID())
	assert.Equal(t, "Ada", claims.DisplayName)

	_, err = auth.ValidateJWT(token, []byte("other"))
	assert.Error(t, err)

	expired, err := auth.GenerateJWT("u1", "Ada", -time.Minute, key)
	require.NoError(t, err)
	_, err = auth.ValidateJWT(expired, key)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	var seen *auth.JwtClaims
	handler := auth.GetJwtAuthMiddleware(key)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.ClaimsFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, seen)

	token, err := auth.GenerateJWT("u1", "", time.Hour, key)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.UserID())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireUser(t *testing.T) {
	handler := auth.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
