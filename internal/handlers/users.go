package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/campusride/campusride-backend/internal/models"
	"github.com/campusride/campusride-backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetProfile returns the current user, with vehicles and rating for drivers.
func GetProfile(db *gorm.DB, reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		ctx := c.Request.Context()

		var user models.User
		if err := db.WithContext(ctx).First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		response := userResponse(&user)
		if user.IsDriver() {
			var vehicles []models.Vehicle
			if err := db.WithContext(ctx).Where("driver_id = ?", user.ID).Find(&vehicles).Error; err != nil {
				respondError(c, err)
				return
			}
			rating, err := reviews.RatingForDriver(ctx, user.ID)
			if err != nil {
				respondError(c, err)
				return
			}
			response["vehicles"] = vehicles
			response["rating"] = rating
		}
		c.JSON(http.StatusOK, response)
	}
}

// UpdateProfile changes the username and phone number.
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input struct {
			Username    *string `json:"username" binding:"omitempty,min=3,max=50"`
			PhoneNumber *string `json:"phoneNumber" binding:"omitempty,e164"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		updates := map[string]interface{}{}
		if input.Username != nil {
			updates["username"] = strings.TrimSpace(*input.Username)
		}
		if input.PhoneNumber != nil {
			updates["phone_number"] = *input.PhoneNumber
		}
		if len(updates) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
			return
		}

		ctx := c.Request.Context()
		err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}

		var user models.User
		if err := db.WithContext(ctx).First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusOK, userResponse(&user))
	}
}
