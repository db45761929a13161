package handlers

import (
	"net/http"

	"github.com/campusride/campusride-backend/internal/middleware"
	"github.com/campusride/campusride-backend/internal/models"
	"github.com/campusride/campusride-backend/internal/services"
	"github.com/campusride/campusride-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func GetNotificationPreferences(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		prefs, err := loadPreferences(db.WithContext(c.Request.Context()), c.GetUint("userId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, prefs)
	}
}

// UpdateNotificationPreferences applies the provided toggles and keeps the
// new trips topic subscription in sync.
func UpdateNotificationPreferences(db *gorm.DB, push *services.PushSender) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input struct {
			PushEnabled      *bool `json:"pushEnabled"`
			BookingAlerts    *bool `json:"bookingAlerts"`
			TripStatusAlerts *bool `json:"tripStatusAlerts"`
			ReviewAlerts     *bool `json:"reviewAlerts"`
			ReportAlerts     *bool `json:"reportAlerts"`
			NewTripAlerts    *bool `json:"newTripAlerts"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		prefs, err := loadPreferences(db.WithContext(ctx), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		wantedBefore := prefs.WantsNewTrips()

		for field, value := range map[*bool]*bool{
			&prefs.PushEnabled:      input.PushEnabled,
			&prefs.BookingAlerts:    input.BookingAlerts,
			&prefs.TripStatusAlerts: input.TripStatusAlerts,
			&prefs.ReviewAlerts:     input.ReviewAlerts,
			&prefs.ReportAlerts:     input.ReportAlerts,
			&prefs.NewTripAlerts:    input.NewTripAlerts,
		} {
			if value != nil {
				*field = *value
			}
		}

		if err := db.WithContext(ctx).Save(prefs).Error; err != nil {
			respondError(c, err)
			return
		}

		if wanted := prefs.WantsNewTrips(); wanted != wantedBefore &&
			models.UserType(c.GetString("userType")) == models.UserTypePassenger {
			syncTopic(c, db, push, userID, wanted)
		}
		c.JSON(http.StatusOK, prefs)
	}
}

func syncTopic(c *gin.Context, db *gorm.DB, push *services.PushSender, userID uint, subscribe bool) {
	ctx := c.Request.Context()
	var user models.User
	if err := db.WithContext(ctx).Select("id", "fcm_token").First(&user, userID).Error; err != nil || user.FCMToken == "" {
		return
	}

	var err error
	if subscribe {
		err = push.SubscribeToTopic(ctx, user.FCMToken, services.PassengersTopic)
	} else {
		err = push.UnsubscribeFromTopic(ctx, user.FCMToken, services.PassengersTopic)
	}
	if err != nil {
		utils.LogEvent(middleware.GetRequestID(c), "notifications", "sync_topic", err.Error())
	}
}
