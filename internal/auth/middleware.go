package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"marketingvoice/internal/models"
)

const (
	userIDContextKey    = "auth_user_id"
	userTypeContextKey  = "auth_user_type"
	authTokenContextKey = "auth_token"
)

// Middleware validates bearer tokens and stores the authenticated user in
// the request context.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authToken := s.extractToken(c)
		if authToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		userID, userType, err := s.ValidateToken(c.Request.Context(), authToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(userIDContextKey, userID)
		c.Set(userTypeContextKey, userType)
		c.Set(authTokenContextKey, authToken)
		c.Next()
	}
}

// UserIDFromContext retrieves the authenticated user id.
func UserIDFromContext(c *gin.Context) (string, bool) {
	val, ok := c.Get(userIDContextKey)
	if !ok {
		return "", false
	}
	userID, ok := val.(string)
	return userID, ok
}

// UserTypeFromContext retrieves the authenticated user's type.
func UserTypeFromContext(c *gin.Context) (models.UserType, bool) {
	val, ok := c.Get(userTypeContextKey)
	if !ok {
		return "", false
	}
	userType, ok := val.(models.UserType)
	return userType, ok
}

// AuthTokenFromContext retrieves the bearer token captured by the middleware.
func AuthTokenFromContext(c *gin.Context) (string, bool) {
	val, ok := c.Get(authTokenContextKey)
	if !ok {
		return "", false
	}
	token, ok := val.(string)
	return token, ok
}

func (s *Service) extractToken(c *gin.Context) string {
	authHeader := c.GetHeader(s.headerName)
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	if token, err := c.Cookie(s.cookieName); err == nil && token != "" {
		return token
	}
	return ""
}
