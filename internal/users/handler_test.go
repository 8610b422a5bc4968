package users

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statio/backend/internal/middleware"
	"github.com/statio/backend/internal/policy"
	"github.com/statio/backend/internal/validation"
)

func newRouter(t *testing.T, p policy.Principal) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, validation.Register())
	h := NewHandler(NewService(newMemStore(), plainHasher{}, nil))
	r := gin.New()
	g := r.Group("/users", func(c *gin.Context) {
		c.Set(middleware.ContextPrincipal, p)
		c.Next()
	})
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	return r
}

func call(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerLifecycle(t *testing.T) {
	r := newRouter(t, admin(uuid.New()))

	w := call(r, http.MethodPost, "/users", gin.H{"email": "x@example.com", "password": "password1", "role": "OWNER"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(r, http.MethodPost, "/users", gin.H{"email": "x@example.com", "password": "password1", "role": "MANAGER"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data struct {
			ID       string `json:"id"`
			Role     string `json:"role"`
			Password string `json:"password"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "MANAGER", created.Data.Role)
	assert.Empty(t, created.Data.Password)

	w = call(r, http.MethodPut, "/users/"+created.Data.ID, gin.H{"full_name": "Ops"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodDelete, "/users/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = call(r, http.MethodGet, "/users/"+created.Data.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerViewerForbidden(t *testing.T) {
	org := uuid.New()
	r := newRouter(t, policy.Principal{UserID: uuid.New(), OrganizationID: &org, Role: "VIEWER"})
	w := call(r, http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
