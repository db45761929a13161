package lifecycle

import (
	"time"

	"github.com/campusride/campusride-backend/internal/models"
)

const (
	// PickupWindow is how long before departure a trip is shown as underway.
	PickupWindow = 30 * time.Minute
	// TravelWindow is how long after departure a trip is still shown as underway.
	TravelWindow = 2 * time.Hour
)

// IsInProgress reports whether a published trip should be displayed as in
// progress at now. It is a display hint layered over the server status: trips
// already marked in_progress are not covered here.
func IsInProgress(trip *models.Trip, now time.Time) bool {
	if trip == nil || trip.Status != models.TripStatusPublished {
		return false
	}
	return withinWindow(trip.DepartureAt, now)
}

func withinWindow(departure, now time.Time) bool {
	if departure.IsZero() {
		return false
	}
	start := departure.Add(-PickupWindow)
	end := departure.Add(TravelWindow)
	return !now.Before(start) && !now.After(end)
}
