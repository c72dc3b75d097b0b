package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSessionAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	sessions := newFakeSessionStoreAPI()
	router := gin.New()
	router.Use(sessionAuthMiddleware(sessions))
	router.GET("/secure", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionAuthMiddlewareAcceptsValidBearerToken(t *testing.T) {
	sessions := newFakeSessionStoreAPI()
	token, _, err := sessions.Create(context.Background(), uuid.New(), "wallet-1", time.Hour)
	require.NoError(t, err)

	router := gin.New()
	router.Use(sessionAuthMiddleware(sessions))
	router.GET("/secure", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterBlocksAfterBurstExhausted(t *testing.T) {
	rl := newRateLimiter(60, 1)
	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	first := httptest.NewRecorder()
	router.ServeHTTP(first, req)
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, req)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
}
