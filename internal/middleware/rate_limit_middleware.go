package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/livequiz-api/internal/service/quizengine"
)

// limiterTimeout ограничивает обращение к бэкенду счетчиков
const limiterTimeout = 2 * time.Second

// JoinRateLimit возвращает middleware, ограничивающий подключения к викторинам по IP.
// Решение принимает quizengine.JoinRateLimiter, здесь только заголовки и ответ.
func JoinRateLimit(limiter quizengine.JoinRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), limiterTimeout)
		decision := limiter.Admit(ctx, c.ClientIP())
		cancel()

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))

		if decision.Allowed {
			c.Next()
			return
		}

		retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", retryAfter))
		c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       quizengine.ReasonRateLimited,
			"error_type":  "rate_limited",
			"retryable":   true,
			"retry_after": retryAfter,
		})
	}
}
