package middleware

import (
	"net/http"
	"strings"

	"parking_billing/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	AuthorizationHeaderKey  = "Authorization"
	AuthorizationTypeBearer = "Bearer"
	UserIDKey               = "userID"
	UserRoleKey             = "userRole"
	UsernameKey             = "username"
)

type AuthMiddleware struct {
	authService *service.AuthService
}

func NewAuthMiddleware(authService *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeaderKey)
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		fields := strings.Fields(authHeader)
		if len(fields) < 2 || !strings.EqualFold(fields[0], AuthorizationTypeBearer) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		_, claims, err := m.authService.ValidateToken(fields[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token is invalid or expired"})
			return
		}

		userID, okUserID := claims["sub"].(string)
		userRole, okUserRole := claims["role"].(string)
		username, okUsername := claims["username"].(string)
		if !okUserID || !okUserRole || !okUsername {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token carries no valid user information"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(UserRoleKey, userRole)
		c.Set(UsernameKey, username)
		c.Next()
	}
}

func (m *AuthMiddleware) AuthorizeRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(UserRoleKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "no role information in request context"})
			return
		}
		roleStr, _ := role.(string)
		for _, allowed := range allowedRoles {
			if roleStr == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
	}
}
