package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/statio/backend/internal/middleware"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, store, _ := newTestService(t)
	h := NewHandler(svc, zap.NewNop())
	r := gin.New()
	g := r.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.GET("/me", middleware.JWT(NewResolver(svc.jwt, store)), h.Me)
	return r
}

func doJSON(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterLoginMe(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/auth/register", "", gin.H{"email": "ops@example.com", "password": "password1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(r, http.MethodPost, "/auth/register", "", gin.H{"email": "ops@example.com", "password": "password1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodPost, "/auth/login", "", gin.H{"email": "ops@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, "/auth/login", "", gin.H{"email": "ops@example.com", "password": "password1"})
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data Token `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.AccessToken)

	w = doJSON(r, http.MethodGet, "/auth/me", body.Data.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_superuser":true`)

	w = doJSON(r, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidatesBody(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(r, http.MethodPost, "/auth/register", "", gin.H{"email": "not-an-email", "password": "password1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
