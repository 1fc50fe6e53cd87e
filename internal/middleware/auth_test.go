package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"study-chat/internal/apperr"
	"study-chat/internal/mocks"
	"study-chat/internal/models"
)

func setupRouter(authenticator *mocks.AuthenticatorMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(zap.NewNop()), AccessLog(zap.NewNop()))
	r.GET("/me", AuthMiddleware(authenticator), func(c *gin.Context) {
		id := Identity(c)
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(UserIDKey), "name": id.Name})
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func TestAuthMiddlewareSetsIdentity(t *testing.T) {
	authenticator := new(mocks.AuthenticatorMock)
	authenticator.On("Authenticate", mock.Anything, "good").Return(models.Identity{UserID: "u1", Name: "Ann"}, nil).Once()
	r := setupRouter(authenticator)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"u1","name":"Ann"}`, rec.Body.String())
	authenticator.AssertExpectations(t)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	authenticator := new(mocks.AuthenticatorMock)
	authenticator.On("Authenticate", mock.Anything, "bad").Return(nil, apperr.Unauthenticated("invalid token"))
	r := setupRouter(authenticator)

	for _, header := range []string{"", "Token abc", "Bearer bad"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestRecovery(t *testing.T) {
	r := setupRouter(new(mocks.AuthenticatorMock))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
