package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminTokenHeader - заголовок с токеном администратора
const AdminTokenHeader = "X-Admin-Token"

// AdminAuth защищает административные маршруты статическим токеном
type AdminAuth struct {
	token string
}

// NewAdminAuth создает middleware администратора.
// Пустой токен закрывает административные маршруты полностью.
func NewAdminAuth(token string) *AdminAuth {
	return &AdminAuth{token: token}
}

// RequireAdmin проверяет токен из X-Admin-Token или заголовка Authorization: Bearer
func (m *AdminAuth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.token == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin API is disabled", "error_type": "forbidden"})
			return
		}

		token := c.GetHeader(AdminTokenHeader)
		if token == "" {
			// Проверяем формат заголовка Bearer {token}
			parts := strings.Split(c.GetHeader("Authorization"), " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "token_missing"})
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) != 1 {
			log.Printf("[AdminAuth] Invalid admin token from %s", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin token", "error_type": "token_invalid"})
			return
		}
		c.Next()
	}
}
