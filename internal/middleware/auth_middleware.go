package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/techjoejoe/Engagesuite-sub001/internal/service"
	"github.com/techjoejoe/Engagesuite-sub001/pkg/auth"
)

// Ключи контекста Gin, заполняемые IdentityMiddleware
const (
	ContextParticipantID = "participantID"
	ContextNickname      = "nickname"
	ContextRole          = "role"
)

// IdentityMiddleware проверяет Bearer-токен гостевой идентичности и кладет
// claims в контекст запроса. Токен принимается из заголовка Authorization
// или, для WebSocket-подключений, из query-параметра token.
func IdentityMiddleware(identityService *service.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is required"})
			return
		}

		claims, err := identityService.Verify(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(ContextParticipantID, claims.ParticipantID)
		c.Set(ContextNickname, claims.Nickname)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireHostRole пропускает только запросы с ролью ведущего.
// Должен стоять после IdentityMiddleware.
func RequireHostRole() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != auth.RoleHost {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Host role is required"})
			return
		}
		c.Next()
	}
}

// extractToken достает токен из заголовка Authorization или query-параметра
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// Браузерный WebSocket API не умеет ставить заголовки
	return c.Query("token")
}
