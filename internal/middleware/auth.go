package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-demo/matchmaker/internal/dto/response"
	"github.com/go-demo/matchmaker/internal/model"
	"github.com/go-demo/matchmaker/internal/pkg/utils"
)

const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
	UserIDKey           = "user_id"
	UsernameKey         = "username"
	GameKey             = "game"
	PlatformKey         = "platform"
	ClaimsKey           = "claims"
)

// Auth creates a JWT authentication middleware
func Auth(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeader)
		if authHeader == "" {
			response.Unauthorized(c, "missing token")
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			response.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, BearerPrefix)
		if token == "" {
			response.Unauthorized(c, "empty token")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			if errors.Is(err, utils.ErrExpiredToken) {
				response.Unauthorized(c, "token expired")
			} else {
				response.Unauthorized(c, "invalid token")
			}
			c.Abort()
			return
		}

		setClaims(c, claims)

		c.Next()
	}
}

// OptionalAuth creates an optional JWT authentication middleware
// It doesn't fail if no token is provided, but validates if one is present
func OptionalAuth(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeader)
		if authHeader == "" {
			c.Next()
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			c.Next()
			return
		}

		token := strings.TrimPrefix(authHeader, BearerPrefix)
		if token == "" {
			c.Next()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			// Token is invalid but optional, continue without user info
			c.Next()
			return
		}

		setClaims(c, claims)

		c.Next()
	}
}

// RequireUser only lets the listed users through. It must run after Auth.
func RequireUser(userIDs ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		allowed[id] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := allowed[GetUserID(c)]; !ok {
			response.Forbidden(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *utils.Claims) {
	c.Set(UserIDKey, claims.UserID)
	c.Set(UsernameKey, claims.Username)
	c.Set(GameKey, claims.Game)
	c.Set(PlatformKey, claims.Platform)
	c.Set(ClaimsKey, claims)
}

// GetUserID retrieves user ID from context
func GetUserID(c *gin.Context) string {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return ""
	}
	return userID.(string)
}

// GetUsername retrieves username from context
func GetUsername(c *gin.Context) string {
	username, exists := c.Get(UsernameKey)
	if !exists {
		return ""
	}
	return username.(string)
}

// GetGame retrieves the session's game from context
func GetGame(c *gin.Context) model.Game {
	game, exists := c.Get(GameKey)
	if !exists {
		return 0
	}
	return game.(model.Game)
}

// GetPlatform retrieves the session's platform from context
func GetPlatform(c *gin.Context) model.Platform {
	platform, exists := c.Get(PlatformKey)
	if !exists {
		return 0
	}
	return platform.(model.Platform)
}

// GetClaims retrieves JWT claims from context
func GetClaims(c *gin.Context) *utils.Claims {
	claims, exists := c.Get(ClaimsKey)
	if !exists {
		return nil
	}
	return claims.(*utils.Claims)
}

// IsAuthenticated checks if user is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get(UserIDKey)
	return exists
}
