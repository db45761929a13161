package lifecycle

import (
	"testing"

	"github.com/campusride/campusride-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTrip(status models.TripStatus) *models.Trip {
	return &models.Trip{
		Origin:      models.Place{Label: "Main Campus"},
		Destination: models.Place{Label: "Central Station"},
		Status:      status,
	}
}

func newBooking(id uint, status models.BookingStatus, trip *models.Trip) *models.Booking {
	b := &models.Booking{Status: status, Trip: trip, Seats: 1}
	b.ID = id
	return b
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name    string
		booking models.BookingStatus
		trip    models.TripStatus
		want    Category
	}{
		{"pending on published trip", models.BookingStatusPending, models.TripStatusPublished, CategoryReserved},
		{"accepted on published trip", models.BookingStatusAccepted, models.TripStatusPublished, CategoryReserved},
		{"accepted on in progress trip", models.BookingStatusAccepted, models.TripStatusInProgress, CategoryInProgress},
		{"accepted on completed trip", models.BookingStatusAccepted, models.TripStatusCompleted, CategoryCompleted},
		{"expired on published trip", models.BookingStatusExpired, models.TripStatusPublished, CategoryCanceled},
		{"declined", models.BookingStatusDeclined, models.TripStatusPublished, CategoryCanceled},
		{"canceled by passenger", models.BookingStatusCanceledByPassenger, models.TripStatusCompleted, CategoryCanceled},
		{"canceled by platform", models.BookingStatusCanceledByPlatform, models.TripStatusInProgress, CategoryCanceled},
		{"declined automatically", models.BookingStatusDeclinedAuto, models.TripStatusDraft, CategoryCanceled},
		{"accepted on canceled trip", models.BookingStatusAccepted, models.TripStatusCanceled, CategoryCanceled},
		{"pending on canceled trip", models.BookingStatusPending, models.TripStatusCanceled, CategoryCanceled},
		{"accepted on draft trip", models.BookingStatusAccepted, models.TripStatusDraft, CategoryReserved},
		{"pending on in progress trip", models.BookingStatusPending, models.TripStatusInProgress, CategoryReserved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Categorize(newBooking(1, tt.booking, newTrip(tt.trip)))
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategorizeRejectsUnknownStatus(t *testing.T) {
	_, ok := Categorize(newBooking(1, "on_hold", newTrip(models.TripStatusPublished)))
	assert.False(t, ok)

	_, ok = Categorize(newBooking(1, models.BookingStatusAccepted, newTrip("paused")))
	assert.False(t, ok)
}

func TestCategorizeEveryKnownPairExactlyOnce(t *testing.T) {
	bookingStatuses := []models.BookingStatus{
		models.BookingStatusPending,
		models.BookingStatusAccepted,
		models.BookingStatusDeclined,
		models.BookingStatusCanceledByPassenger,
		models.BookingStatusCanceledByPlatform,
		models.BookingStatusExpired,
		models.BookingStatusDeclinedAuto,
	}
	tripStatuses := []models.TripStatus{
		models.TripStatusDraft,
		models.TripStatusPublished,
		models.TripStatusInProgress,
		models.TripStatusCanceled,
		models.TripStatusCompleted,
	}

	var input []*models.Booking
	id := uint(0)
	for _, bs := range bookingStatuses {
		for _, ts := range tripStatuses {
			id++
			input = append(input, newBooking(id, bs, newTrip(ts)))
		}
	}

	buckets := Classify(input)
	require.Equal(t, len(input), buckets.Len())

	seen := map[uint]int{}
	for _, c := range Categories {
		for _, b := range buckets.Get(c) {
			seen[b.ID]++
		}
	}
	for _, b := range input {
		assert.Equal(t, 1, seen[b.ID], "booking %d (%s/%s)", b.ID, b.Status, b.Trip.Status)
	}
}

func TestClassifyDropsMalformedRecords(t *testing.T) {
	noTrip := newBooking(2, models.BookingStatusPending, nil)
	noOrigin := newBooking(3, models.BookingStatusPending, &models.Trip{
		Destination: models.Place{Label: "Central Station"},
		Status:      models.TripStatusPublished,
	})
	noDestination := newBooking(4, models.BookingStatusPending, &models.Trip{
		Origin: models.Place{Label: "Main Campus"},
		Status: models.TripStatusPublished,
	})
	good := newBooking(5, models.BookingStatusPending, newTrip(models.TripStatusPublished))

	var buckets Buckets
	require.NotPanics(t, func() {
		buckets = Classify([]*models.Booking{nil, noTrip, noOrigin, noDestination, good})
	})

	assert.Equal(t, 1, buckets.Len())
	assert.Equal(t, []*models.Booking{good}, buckets.Reserved)
	for _, c := range Categories {
		for _, b := range buckets.Get(c) {
			assert.NotEqual(t, uint(2), b.ID)
		}
	}
}

func TestClassifyPreservesInputOrder(t *testing.T) {
	a := newBooking(1, models.BookingStatusPending, newTrip(models.TripStatusPublished))
	b := newBooking(2, models.BookingStatusExpired, newTrip(models.TripStatusPublished))
	c := newBooking(3, models.BookingStatusAccepted, newTrip(models.TripStatusPublished))
	d := newBooking(4, models.BookingStatusDeclined, newTrip(models.TripStatusPublished))

	buckets := Classify([]*models.Booking{a, b, c, d})

	assert.Equal(t, []*models.Booking{a, c}, buckets.Reserved)
	assert.Equal(t, []*models.Booking{b, d}, buckets.Canceled)
	assert.Empty(t, buckets.InProgress)
	assert.Empty(t, buckets.Completed)
}

func TestClassifyEmptyInputHasNonNilBuckets(t *testing.T) {
	buckets := Classify(nil)
	assert.NotNil(t, buckets.InProgress)
	assert.NotNil(t, buckets.Reserved)
	assert.NotNil(t, buckets.Completed)
	assert.NotNil(t, buckets.Canceled)
	assert.Nil(t, buckets.Get("archived"))
}
