package lifecycle

import (
	"testing"

	"github.com/campusride/campusride-backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.BookingStatusPending, models.BookingStatusAccepted))
	assert.True(t, CanTransition(models.BookingStatusPending, models.BookingStatusExpired))
	assert.True(t, CanTransition(models.BookingStatusAccepted, models.BookingStatusCanceledByPassenger))
	assert.False(t, CanTransition(models.BookingStatusAccepted, models.BookingStatusDeclined))
	assert.False(t, CanTransition(models.BookingStatusDeclined, models.BookingStatusAccepted))
	assert.False(t, CanTransition(models.BookingStatusExpired, models.BookingStatusPending))
}

func TestCanTransitionTrip(t *testing.T) {
	assert.True(t, CanTransitionTrip(models.TripStatusDraft, models.TripStatusPublished))
	assert.True(t, CanTransitionTrip(models.TripStatusPublished, models.TripStatusInProgress))
	assert.True(t, CanTransitionTrip(models.TripStatusInProgress, models.TripStatusCompleted))
	assert.False(t, CanTransitionTrip(models.TripStatusInProgress, models.TripStatusCanceled))
	assert.False(t, CanTransitionTrip(models.TripStatusCompleted, models.TripStatusPublished))
	assert.False(t, CanTransitionTrip(models.TripStatusDraft, models.TripStatusCompleted))
}
