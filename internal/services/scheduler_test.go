package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/campusride/campusride-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJobs(t *testing.T) (*BookingJobs, sqlmock.Sqlmock) {
	db, mock := newMockDB(t)
	return &BookingJobs{DB: db, Now: func() time.Time { return fixedNow }}, mock
}

func TestExpirePendingBookingsWithNothingToDo(t *testing.T) {
	jobs, mock := newTestJobs(t)

	mock.ExpectQuery(`SELECT bookings.id, bookings.trip_id, bookings.passenger_id FROM "bookings" JOIN trips`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "trip_id", "passenger_id"}))

	n, err := jobs.ExpirePendingBookings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpirePendingBookingsClosesStaleOnes(t *testing.T) {
	jobs, mock := newTestJobs(t)

	mock.ExpectQuery(`SELECT bookings.id, bookings.trip_id, bookings.passenger_id FROM "bookings" JOIN trips`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "trip_id", "passenger_id"}).
			AddRow(1, 5, 9).
			AddRow(2, 5, 10))
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "bookings" SET "status"=\$1.* RETURNING "id","trip_id","passenger_id"`).
		WithArgs("expired", sqlmock.AnyArg(), 1, 2, "pending").
		WillReturnRows(sqlmock.NewRows([]string{"id", "trip_id", "passenger_id"}).AddRow(1, 5, 9).AddRow(2, 5, 10))
	mock.ExpectCommit()

	n, err := jobs.ExpirePendingBookings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAutoDeclineBookingsOnClosedTrips(t *testing.T) {
	jobs, mock := newTestJobs(t)

	mock.ExpectQuery(`SELECT bookings.id, bookings.trip_id, bookings.passenger_id FROM "bookings" JOIN trips`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "trip_id", "passenger_id"}).AddRow(3, 6, 9))
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "bookings" SET "status"=\$1.* RETURNING`).
		WithArgs("declined_auto", sqlmock.AnyArg(), 3, "pending").
		WillReturnRows(sqlmock.NewRows([]string{"id", "trip_id", "passenger_id"}).AddRow(3, 6, 9))
	mock.ExpectCommit()

	n, err := jobs.AutoDeclineBookings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireSkipsBookingsAnsweredMeanwhile(t *testing.T) {
	jobs, mock := newTestJobs(t)
	notifyDB, _ := newMockDB(t)
	hub := NewHub()
	answered := addTestClient(hub, 9, 4)
	expired := addTestClient(hub, 10, 4)
	jobs.Notifier = &Notifier{DB: notifyDB, Hub: hub}

	mock.ExpectQuery(`SELECT bookings.id, bookings.trip_id, bookings.passenger_id FROM "bookings" JOIN trips`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "trip_id", "passenger_id"}).
			AddRow(1, 5, 9).
			AddRow(2, 5, 10))
	// booking 1 was accepted after the select, so only booking 2 comes back
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "bookings" SET "status"=\$1.* RETURNING`).
		WithArgs("expired", sqlmock.AnyArg(), 1, 2, "pending").
		WillReturnRows(sqlmock.NewRows([]string{"id", "trip_id", "passenger_id"}).AddRow(2, 5, 10))
	mock.ExpectCommit()

	n, err := jobs.ExpirePendingBookings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())

	var msg struct {
		Type string        `json:"type"`
		Data BookingUpdate `json:"data"`
	}
	require.NoError(t, json.Unmarshal(<-expired.Send, &msg))
	assert.Equal(t, uint(2), msg.Data.BookingID)
	assert.Equal(t, models.BookingStatusExpired, msg.Data.Status)
	assert.Len(t, answered.Send, 0, "no update for the accepted booking")
}
