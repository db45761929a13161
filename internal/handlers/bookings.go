package handlers

import (
	"context"
	"net/http"

	"github.com/campusride/campusride-backend/internal/lifecycle"
	"github.com/campusride/campusride-backend/internal/models"
	"github.com/campusride/campusride-backend/internal/services"
	"github.com/gin-gonic/gin"
)

type BookingInput struct {
	TripID uint   `json:"tripId" binding:"required"`
	Seats  int    `json:"seats" binding:"required,min=1,max=8"`
	Note   string `json:"note" binding:"max=300"`
}

func CreateBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input BookingInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		booking, err := bookings.Create(c.Request.Context(), c.GetUint("userId"), services.CreateBookingInput{
			TripID: input.TripID,
			Seats:  input.Seats,
			Note:   input.Note,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, booking)
	}
}

// BookingLister loads the bookings of a passenger with their trips.
type BookingLister interface {
	ListForPassenger(ctx context.Context, passengerID uint) ([]*models.Booking, error)
}

// MyBookings returns the passenger's bookings grouped into the My Trips tabs.
func MyBookings(bookings BookingLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := bookings.ListForPassenger(c.Request.Context(), c.GetUint("userId"))
		if err != nil {
			respondError(c, err)
			return
		}

		buckets := lifecycle.Classify(list)
		c.JSON(http.StatusOK, gin.H{"bookings": buckets, "count": buckets.Len()})
	}
}

func GetBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		booking, err := bookings.Get(c.Request.Context(), c.GetUint("userId"), id)
		if err != nil {
			respondError(c, err)
			return
		}
		category, _ := lifecycle.Categorize(booking)
		c.JSON(http.StatusOK, gin.H{"booking": booking, "category": category})
	}
}

type bookingAction func(ctx context.Context, userID, bookingID uint) (*models.Booking, error)

// BookingAction wraps cancel, accept and decline, which share their request shape.
func BookingAction(action bookingAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		booking, err := action(c.Request.Context(), c.GetUint("userId"), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, booking)
	}
}
