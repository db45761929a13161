package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/campusride/campusride-backend/internal/lifecycle"
	"github.com/campusride/campusride-backend/internal/models"
	"github.com/campusride/campusride-backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PlaceInput struct {
	Label string   `json:"label" binding:"required,max=200"`
	Lat   *float64 `json:"lat" binding:"omitempty,latitude"`
	Lng   *float64 `json:"lng" binding:"omitempty,longitude"`
}

func (p PlaceInput) place() models.Place {
	return models.Place{Label: p.Label, Lat: p.Lat, Lng: p.Lng}
}

type TripInput struct {
	VehicleID          uint       `json:"vehicleId" binding:"required"`
	Origin             PlaceInput `json:"origin"`
	Destination        PlaceInput `json:"destination"`
	DepartureAt        time.Time  `json:"departureAt" binding:"required"`
	EstimatedArrivalAt *time.Time `json:"estimatedArrivalAt"`
	PricePerSeat       float64    `json:"pricePerSeat" binding:"gte=0"`
	TotalSeats         int        `json:"totalSeats" binding:"required,min=1,max=8"`
	Notes              string     `json:"notes" binding:"max=500"`
	Publish            bool       `json:"publish"`
}

func (in TripInput) toService() services.TripInput {
	out := services.TripInput{
		VehicleID:    in.VehicleID,
		Origin:       in.Origin.place(),
		Destination:  in.Destination.place(),
		DepartureAt:  in.DepartureAt,
		PricePerSeat: in.PricePerSeat,
		TotalSeats:   in.TotalSeats,
		Notes:        in.Notes,
	}
	if in.EstimatedArrivalAt != nil {
		out.EstimatedArrivalAt = *in.EstimatedArrivalAt
	}
	return out
}

// SearchTrips lists bookable trips. Query: origin, destination, date (YYYY-MM-DD),
// seats, lat, lng, radiusKm.
func SearchTrips(trips *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := services.TripSearch{
			Origin:      c.Query("origin"),
			Destination: c.Query("destination"),
		}

		if raw := c.Query("date"); raw != "" {
			date, err := time.Parse("2006-01-02", raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
				return
			}
			q.Date = date
		}
		if raw := c.Query("seats"); raw != "" {
			seats, err := strconv.Atoi(raw)
			if err != nil || seats < 1 || seats > models.MaxVehicleSeats {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid seats"})
				return
			}
			q.Seats = seats
		}

		latRaw, lngRaw := c.Query("lat"), c.Query("lng")
		if latRaw != "" || lngRaw != "" {
			lat, errLat := strconv.ParseFloat(latRaw, 64)
			lng, errLng := strconv.ParseFloat(lngRaw, 64)
			if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng must both be valid coordinates"})
				return
			}
			q.Lat, q.Lng = &lat, &lng
			if raw := c.Query("radiusKm"); raw != "" {
				radius, err := strconv.ParseFloat(raw, 64)
				if err != nil || radius <= 0 || radius > 100 {
					c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid radiusKm"})
					return
				}
				q.RadiusKm = radius
			}
		}

		results, err := trips.Search(c.Request.Context(), q)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"trips": results, "count": len(results)})
	}
}

// GetTrip returns a trip with its free seats, driver rating and the in-progress display hint.
func GetTrip(db *gorm.DB, trips *services.TripService, reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()

		trip, err := trips.Get(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		if trip.Status == models.TripStatusDraft && trip.DriverID != c.GetUint("userId") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
			return
		}

		seatsLeft, err := services.SeatsLeft(ctx, db, trip)
		if err != nil {
			respondError(c, err)
			return
		}
		rating, err := reviews.RatingForDriver(ctx, trip.DriverID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"trip":              trip,
			"seatsLeft":         seatsLeft,
			"displayInProgress": trip.Status == models.TripStatusInProgress || lifecycle.IsInProgress(trip, time.Now()),
			"driverRating":      rating,
		})
	}
}

func CreateTrip(trips *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input TripInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		trip, err := trips.Create(c.Request.Context(), c.GetUint("userId"), input.toService(), input.Publish)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, trip)
	}
}

func UpdateTrip(trips *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var input TripInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		trip, err := trips.Update(c.Request.Context(), c.GetUint("userId"), id, input.toService())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, trip)
	}
}

// TransitionTrip returns a handler moving the trip in :id to status to.
func TransitionTrip(trips *services.TripService, to models.TripStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		trip, err := trips.Transition(c.Request.Context(), c.GetUint("userId"), id, to)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, trip)
	}
}

// DriverTrips returns the driver's trips grouped into tabs.
func DriverTrips(trips *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := trips.ListForDriver(c.Request.Context(), c.GetUint("userId"))
		if err != nil {
			respondError(c, err)
			return
		}

		buckets := lifecycle.ClassifyTrips(list, time.Now())
		c.JSON(http.StatusOK, gin.H{"trips": buckets, "count": buckets.Len()})
	}
}

func TripBookings(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		list, err := bookings.ListForTrip(c.Request.Context(), c.GetUint("userId"), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}
