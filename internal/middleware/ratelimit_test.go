package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func rateLimitedRouter(perMinute int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	rl := NewRateLimiter("auth", perMinute, nil, nil, nil)
	router.POST("/login", rl.Handler(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func doLogin(router *gin.Engine) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	router.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter(t *testing.T) {
	t.Run("超过配额返回429", func(t *testing.T) {
		router := rateLimitedRouter(2)

		assert.Equal(t, http.StatusOK, doLogin(router))
		assert.Equal(t, http.StatusOK, doLogin(router))
		assert.Equal(t, http.StatusTooManyRequests, doLogin(router))
	})

	t.Run("配额为零时不限流", func(t *testing.T) {
		router := rateLimitedRouter(0)

		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusOK, doLogin(router))
		}
	})

	t.Run("负配额同样不限流", func(t *testing.T) {
		router := rateLimitedRouter(-1)

		assert.Equal(t, http.StatusOK, doLogin(router))
	})
}
