package lifecycle

import "github.com/campusride/campusride-backend/internal/models"

var bookingTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingStatusPending: {
		models.BookingStatusAccepted,
		models.BookingStatusDeclined,
		models.BookingStatusCanceledByPassenger,
		models.BookingStatusCanceledByPlatform,
		models.BookingStatusExpired,
		models.BookingStatusDeclinedAuto,
	},
	models.BookingStatusAccepted: {
		models.BookingStatusCanceledByPassenger,
		models.BookingStatusCanceledByPlatform,
	},
}

var tripTransitions = map[models.TripStatus][]models.TripStatus{
	models.TripStatusDraft:      {models.TripStatusPublished, models.TripStatusCanceled},
	models.TripStatusPublished:  {models.TripStatusInProgress, models.TripStatusCanceled, models.TripStatusDraft},
	models.TripStatusInProgress: {models.TripStatusCompleted},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to models.BookingStatus) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransitionTrip reports whether a trip may move from one status to another.
// Unpublishing is further restricted by the trip service.
func CanTransitionTrip(from, to models.TripStatus) bool {
	for _, s := range tripTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
