package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manuscript-review-api/models"
	"manuscript-review-api/services"
)

type stubAuthenticator struct {
	user *models.User
	err  error
	got  string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (*models.User, error) {
	s.got = token
	return s.user, s.err
}

func newRouter(auth Authenticator, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := []gin.HandlerFunc{AuthMiddleware(auth)}
	if len(roles) > 0 {
		chain = append(chain, RequireRole(roles...))
	}
	chain = append(chain, func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": user.UserID, "role": c.GetString("role")})
	})
	r.GET("/private", chain...)
	return r
}

func serve(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func envelopeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Message
}

func TestAuthMiddleware(t *testing.T) {
	editor := &models.User{UserID: 5, Role: models.RoleEditor, IsActive: true}

	t.Run("missing header", func(t *testing.T) {
		rec := serve(newRouter(&stubAuthenticator{user: editor}), "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Authorization header is required", envelopeMessage(t, rec))
	})

	t.Run("wrong scheme", func(t *testing.T) {
		rec := serve(newRouter(&stubAuthenticator{user: editor}), "Basic abc")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		envelopeMessage(t, rec)
	})

	t.Run("rejected token", func(t *testing.T) {
		stub := &stubAuthenticator{err: &services.Error{Kind: services.KindAuthentication, Message: "invalid or expired token"}}
		rec := serve(newRouter(stub), "Bearer expired")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "expired", stub.got)
	})

	t.Run("lookup failure", func(t *testing.T) {
		rec := serve(newRouter(&stubAuthenticator{err: errors.New("db down")}), "Bearer token")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal server error", envelopeMessage(t, rec))
	})

	t.Run("valid token", func(t *testing.T) {
		rec := serve(newRouter(&stubAuthenticator{user: editor}), "Bearer good")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user_id":5,"role":"EDITOR"}`, rec.Body.String())
	})
}

func TestRequireRole(t *testing.T) {
	author := &models.User{UserID: 1, Role: models.RoleAuthor, IsActive: true}
	admin := &models.User{UserID: 2, Role: models.RoleAdmin, IsActive: true}

	rec := serve(newRouter(&stubAuthenticator{user: author}, models.RoleEditor, models.RoleAdmin), "Bearer t")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Insufficient permissions", envelopeMessage(t, rec))

	rec = serve(newRouter(&stubAuthenticator{user: admin}, models.RoleEditor, models.RoleAdmin), "Bearer t")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders(), CORSMiddleware([]string{"https://app.journal.org/"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.journal.org")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.journal.org", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.journal.org")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
