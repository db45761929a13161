package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/campusride/campusride-backend/internal/middleware"
	"github.com/campusride/campusride-backend/internal/models"
	"github.com/campusride/campusride-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SessionManager issues and revokes login sessions.
type SessionManager interface {
	Create(ctx context.Context, userID uint, userType models.UserType) (string, error)
	Revoke(ctx context.Context, id string) error
}

// TokenConfig signs access tokens.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
}

type RegisterInput struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Phone    string `json:"phone" binding:"omitempty,e164"`
	UserType string `json:"userType" binding:"required,oneof=passenger driver"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func userResponse(user *models.User) gin.H {
	return gin.H{
		"id":          user.ID,
		"email":       user.Email,
		"username":    user.Username,
		"phoneNumber": user.PhoneNumber,
		"userType":    user.UserType,
	}
}

// Register creates an account together with its default notification preferences.
func Register(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RegisterInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user := models.User{
			Username:    strings.TrimSpace(input.Username),
			Email:       strings.ToLower(strings.TrimSpace(input.Email)),
			PhoneNumber: input.Phone,
			UserType:    models.UserType(input.UserType),
		}
		if err := user.HashPassword(input.Password); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}

		err := db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			return tx.Create(models.DefaultPreferences(user.ID)).Error
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email or username already registered"})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}

		utils.LogEvent(middleware.GetRequestID(c), "auth", "register", "user="+user.Email)
		c.JSON(http.StatusCreated, gin.H{
			"message": "User created successfully",
			"user":    userResponse(&user),
		})
	}
}

// Login checks credentials, opens a session and returns a token bound to it.
func Login(db *gorm.DB, sessions SessionManager, tokens TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		email := strings.ToLower(strings.TrimSpace(input.Email))
		if err := db.WithContext(c.Request.Context()).Where("email = ?", email).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		if err := user.CheckPassword(input.Password); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		sessionID, err := sessions.Create(c.Request.Context(), user.ID, user.UserType)
		if err != nil {
			respondError(c, err)
			return
		}

		token, err := utils.GenerateToken(tokens.Secret, tokens.TTL, &user, sessionID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		utils.LogEvent(middleware.GetRequestID(c), "auth", "login", "user="+user.Email)
		c.JSON(http.StatusOK, gin.H{
			"token":     token,
			"expiresAt": time.Now().Add(tokens.TTL).UTC(),
			"user":      userResponse(&user),
		})
	}
}

// Logout revokes the session of the current token.
func Logout(sessions SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := sessions.Revoke(c.Request.Context(), c.GetString("sessionId")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}
