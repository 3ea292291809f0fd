package middleware

import (
	"net/http"
	"strings"

	"github.com/odeyarrenukaradhya/placement-support/internals/models"
	"github.com/odeyarrenukaradhya/placement-support/internals/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ContextUserKey is where RequireAuth stores the authenticated models.User.
const ContextUserKey = "user"

type AuthMiddleware struct {
	DB           *gorm.DB
	TokenManager *utils.TokenManager
}

func NewAuthMiddleware(db *gorm.DB, tokenManager *utils.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{
		DB:           db,
		TokenManager: tokenManager,
	}
}

// RequireAuth validates the Bearer token and loads the authenticated user
// onto the request context.
func (m *AuthMiddleware) RequireAuth(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
		return
	}

	claims, err := m.TokenManager.ParseAccessToken(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	var user models.User
	if err := m.DB.First(&user, claims.UserID).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	c.Set(ContextUserKey, user)
	c.Next()
}

// AuthorizeRoles guards a route group to a closed set of roles. Must run
// after RequireAuth.
func AuthorizeRoles(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		for _, role := range allowedRoles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	}
}

// CurrentUser fetches the authenticated user set by RequireAuth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok
}
