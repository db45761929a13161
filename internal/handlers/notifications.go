package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/campusride/campusride-backend/internal/middleware"
	"github.com/campusride/campusride-backend/internal/models"
	"github.com/campusride/campusride-backend/internal/services"
	"github.com/campusride/campusride-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const maxNotificationPage = 100

// ListNotifications returns the user's notifications, newest first.
// Query: limit (default 50), unread=true.
func ListNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		limit := 50
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxNotificationPage {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
				return
			}
			limit = n
		}

		query := db.WithContext(c.Request.Context()).Where("user_id = ?", userID)
		if c.Query("unread") == "true" {
			query = query.Where("read_at IS NULL")
		}

		var notifications []models.Notification
		if err := query.Order("created_at DESC").Limit(limit).Find(&notifications).Error; err != nil {
			respondError(c, err)
			return
		}

		var unread int64
		err := db.WithContext(c.Request.Context()).Model(&models.Notification{}).
			Where("user_id = ? AND read_at IS NULL", userID).
			Count(&unread).Error
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"notifications": notifications, "unread": unread})
	}
}

func MarkNotificationRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		res := db.WithContext(c.Request.Context()).Model(&models.Notification{}).
			Where("id = ? AND user_id = ? AND read_at IS NULL", id, c.GetUint("userId")).
			Update("read_at", time.Now())
		if res.Error != nil {
			respondError(c, res.Error)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": res.RowsAffected})
	}
}

func MarkAllNotificationsRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := db.WithContext(c.Request.Context()).Model(&models.Notification{}).
			Where("user_id = ? AND read_at IS NULL", c.GetUint("userId")).
			Update("read_at", time.Now())
		if res.Error != nil {
			respondError(c, res.Error)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": res.RowsAffected})
	}
}

// RegisterFCMToken stores the device token and subscribes passengers to the new trips topic.
func RegisterFCMToken(db *gorm.DB, push *services.PushSender) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input struct {
			FCMToken string `json:"fcmToken" binding:"required,max=4096"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("fcm_token", input.FCMToken).Error; err != nil {
			respondError(c, err)
			return
		}

		topics := []string{}
		if models.UserType(c.GetString("userType")) == models.UserTypePassenger {
			prefs, err := loadPreferences(db.WithContext(ctx), userID)
			if err != nil {
				respondError(c, err)
				return
			}
			if prefs.WantsNewTrips() {
				if err := push.SubscribeToTopic(ctx, input.FCMToken, services.PassengersTopic); err != nil {
					utils.LogEvent(middleware.GetRequestID(c), "notifications", "subscribe", err.Error())
					c.JSON(http.StatusOK, gin.H{
						"message": "FCM token registered, but topic subscription failed",
						"warning": err.Error(),
					})
					return
				}
				topics = append(topics, services.PassengersTopic)
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "FCM token registered",
			"topics":  topics,
		})
	}
}

// RemoveFCMToken clears the device token, typically on logout.
func RemoveFCMToken(db *gorm.DB, push *services.PushSender) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		ctx := c.Request.Context()

		var user models.User
		if err := db.WithContext(ctx).Select("id", "fcm_token").First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if user.FCMToken != "" {
			if err := push.UnsubscribeFromTopic(ctx, user.FCMToken, services.PassengersTopic); err != nil {
				utils.LogEvent(middleware.GetRequestID(c), "notifications", "unsubscribe", err.Error())
			}
		}

		if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("fcm_token", "").Error; err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "FCM token removed"})
	}
}

// loadPreferences returns the stored preferences, creating the defaults on first use.
func loadPreferences(db *gorm.DB, userID uint) (*models.NotificationPreference, error) {
	var prefs models.NotificationPreference
	err := db.Where("user_id = ?", userID).First(&prefs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		defaults := models.DefaultPreferences(userID)
		if err := db.Create(defaults).Error; err != nil {
			return nil, err
		}
		return defaults, nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}
