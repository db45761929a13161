package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/campusride/campusride-backend/internal/middleware"
	"github.com/campusride/campusride-backend/internal/models"
	"github.com/campusride/campusride-backend/internal/services"
	"github.com/campusride/campusride-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type VehicleInput struct {
	Make  string `json:"make" binding:"required,max=50"`
	Model string `json:"model" binding:"required,max=50"`
	Color string `json:"color" binding:"required,max=30"`
	Plate string `json:"plate" binding:"required,max=20"`
	Seats int    `json:"seats" binding:"required,min=1,max=8"`
}

func CreateVehicle(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input VehicleInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		vehicle := models.Vehicle{
			DriverID:  c.GetUint("userId"),
			Make:      input.Make,
			ModelName: input.Model,
			Color:     input.Color,
			Plate:     strings.ToUpper(strings.ReplaceAll(input.Plate, " ", "")),
			Seats:     input.Seats,
		}
		err := db.WithContext(c.Request.Context()).Create(&vehicle).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "A vehicle with this plate is already registered"})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, vehicle)
	}
}

func ListVehicles(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var vehicles []models.Vehicle
		err := db.WithContext(c.Request.Context()).
			Where("driver_id = ?", c.GetUint("userId")).
			Order("created_at ASC").
			Find(&vehicles).Error
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, vehicles)
	}
}

func findDriverVehicle(c *gin.Context, db *gorm.DB) (*models.Vehicle, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	var vehicle models.Vehicle
	err := db.WithContext(c.Request.Context()).
		Where("id = ? AND driver_id = ?", id, c.GetUint("userId")).
		First(&vehicle).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
		return nil, false
	}
	return &vehicle, true
}

// DeleteVehicle refuses vehicles still used by an open trip.
func DeleteVehicle(db *gorm.DB, storage *services.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		vehicle, ok := findDriverVehicle(c, db)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		var open int64
		err := db.WithContext(ctx).Model(&models.Trip{}).
			Where("vehicle_id = ? AND status IN ?", vehicle.ID, []models.TripStatus{
				models.TripStatusDraft, models.TripStatusPublished, models.TripStatusInProgress,
			}).
			Count(&open).Error
		if err != nil {
			respondError(c, err)
			return
		}
		if open > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Vehicle is used by an open trip"})
			return
		}

		if err := db.WithContext(ctx).Delete(vehicle).Error; err != nil {
			respondError(c, err)
			return
		}
		if vehicle.PhotoURL != "" {
			if err := storage.DeleteImage(vehicle.PhotoURL); err != nil {
				utils.LogEvent(middleware.GetRequestID(c), "vehicle", "delete_photo", err.Error())
			}
		}
		c.JSON(http.StatusOK, gin.H{"message": "Vehicle deleted"})
	}
}

// UploadVehiclePhoto stores the multipart "photo" file and replaces the previous photo.
func UploadVehiclePhoto(db *gorm.DB, storage *services.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		vehicle, ok := findDriverVehicle(c, db)
		if !ok {
			return
		}

		file, err := c.FormFile("photo")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
			return
		}

		url, err := storage.UploadImage(file, "vehicles")
		if err != nil {
			respondError(c, err)
			return
		}

		previous := vehicle.PhotoURL
		if err := db.WithContext(c.Request.Context()).Model(vehicle).Update("photo_url", url).Error; err != nil {
			respondError(c, err)
			return
		}
		vehicle.PhotoURL = url
		if previous != "" {
			if err := storage.DeleteImage(previous); err != nil {
				utils.LogEvent(middleware.GetRequestID(c), "vehicle", "delete_photo", err.Error())
			}
		}
		c.JSON(http.StatusOK, vehicle)
	}
}
