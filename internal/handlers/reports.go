package handlers

import (
	"net/http"
	"strconv"

	"github.com/campusride/campusride-backend/internal/middleware"
	"github.com/campusride/campusride-backend/internal/models"
	"github.com/campusride/campusride-backend/internal/services"
	"github.com/campusride/campusride-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ReportInput struct {
	TripID         *uint  `json:"tripId"`
	ReportedUserID *uint  `json:"reportedUserId"`
	Reason         string `json:"reason" binding:"required,reportreason"`
	Description    string `json:"description" binding:"max=2000"`
}

// CreateReport files a report about a trip the reporter took part in, or about another user.
func CreateReport(db *gorm.DB, notifier *services.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		reporterID := c.GetUint("userId")

		var input ReportInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if input.TripID == nil && input.ReportedUserID == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tripId or reportedUserId is required"})
			return
		}
		if input.ReportedUserID != nil && *input.ReportedUserID == reporterID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot report yourself"})
			return
		}

		ctx := c.Request.Context()
		if input.TripID != nil {
			var trip models.Trip
			if err := db.WithContext(ctx).First(&trip, *input.TripID).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
				return
			}
			if trip.DriverID != reporterID {
				var booked int64
				err := db.WithContext(ctx).Model(&models.Booking{}).
					Where("trip_id = ? AND passenger_id = ?", trip.ID, reporterID).
					Count(&booked).Error
				if err != nil {
					respondError(c, err)
					return
				}
				if booked == 0 {
					c.JSON(http.StatusForbidden, gin.H{"error": "You can only report trips you took part in"})
					return
				}
			}
		}
		if input.ReportedUserID != nil {
			var exists int64
			if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", *input.ReportedUserID).Count(&exists).Error; err != nil {
				respondError(c, err)
				return
			}
			if exists == 0 {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
		}

		report := models.Report{
			ReporterID:     reporterID,
			TripID:         input.TripID,
			ReportedUserID: input.ReportedUserID,
			Reason:         models.ReportReason(input.Reason),
			Description:    input.Description,
			Status:         models.ReportStatusOpen,
		}
		if err := db.WithContext(ctx).Create(&report).Error; err != nil {
			respondError(c, err)
			return
		}

		utils.LogEvent(middleware.GetRequestID(c), "report", "create", "report="+strconv.FormatUint(uint64(report.ID), 10)+" reason="+input.Reason)
		notifier.Dispatch(ctx, services.Notice{
			UserID: reporterID,
			Kind:   models.NotificationKindReport,
			Type:   "report_received",
			Title:  "Report received",
			Body:   "Thanks, our team will look into it",
			Data:   map[string]string{"reportId": strconv.FormatUint(uint64(report.ID), 10)},
		})
		c.JSON(http.StatusCreated, report)
	}
}

func MyReports(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var reports []models.Report
		err := db.WithContext(c.Request.Context()).
			Where("reporter_id = ?", c.GetUint("userId")).
			Order("created_at DESC").
			Find(&reports).Error
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, reports)
	}
}
