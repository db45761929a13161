package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/campusride/campusride-backend/internal/models"
	"github.com/campusride/campusride-backend/internal/services"
	"github.com/campusride/campusride-backend/pkg/utils"
	"github.com/gin-gonic/gin"
)

// SessionChecker looks up the server side session of a token.
type SessionChecker interface {
	Get(ctx context.Context, id string) (*services.Session, error)
}

// AuthMiddleware validates the bearer token (or the token query parameter,
// used by websocket clients) and rejects revoked sessions. A nil sessions
// checker trusts the token alone.
func AuthMiddleware(secret []byte, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header or token query parameter required"})
			return
		}

		claims, err := utils.ValidateToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		if sessions != nil {
			session, err := sessions.Get(c.Request.Context(), claims.SessionID)
			if errors.Is(err, services.ErrSessionNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
				return
			}
			if err != nil {
				utils.LogEvent(GetRequestID(c), "auth", "session_lookup", err.Error())
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Session store unavailable"})
				return
			}
			if session.UserID != userID {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
				return
			}
		}

		c.Set("userId", userID)
		c.Set("userType", string(claims.UserType))
		c.Set("sessionId", claims.SessionID)
		c.Next()
	}
}

// RequireUserType only lets users of the given type through.
func RequireUserType(userType models.UserType) gin.HandlerFunc {
	return func(c *gin.Context) {
		if models.UserType(c.GetString("userType")) != userType {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Only " + string(userType) + "s can do this"})
			return
		}
		c.Next()
	}
}
