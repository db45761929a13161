package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/campusride/campusride-backend/internal/models"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreCreateAndGet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewSessionStore(client, time.Hour)
	store.newID = func() string { return "abc" }
	ctx := context.Background()

	mock.ExpectSet("session:abc", `{"userId":7,"userType":"passenger"}`, time.Hour).SetVal("OK")
	id, err := store.Create(ctx, 7, models.UserTypePassenger)
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	mock.ExpectGet("session:abc").SetVal(`{"userId":7,"userType":"passenger"}`)
	session, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, uint(7), session.UserID)
	assert.Equal(t, models.UserTypePassenger, session.UserType)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStoreRevokedSessionIsNotFound(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	mock.ExpectDel("session:abc").SetVal(1)
	require.NoError(t, store.Revoke(ctx, "abc"))

	mock.ExpectGet("session:abc").RedisNil()
	_, err := store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingCacheMissThenHit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewBookingCache(client, 5*time.Minute)
	ctx := context.Background()

	mock.ExpectGet("bookings:passenger:3").RedisNil()
	_, ok, err := cache.Get(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	bookings := []*models.Booking{{
		TripID:      11,
		PassengerID: 3,
		Seats:       2,
		Status:      models.BookingStatusPending,
		Trip:        &models.Trip{Status: models.TripStatusPublished, Origin: models.Place{Label: "Campus"}},
	}}
	data, err := json.Marshal(bookings)
	require.NoError(t, err)

	mock.ExpectSet("bookings:passenger:3", string(data), 5*time.Minute).SetVal("OK")
	require.NoError(t, cache.Set(ctx, 3, bookings))

	mock.ExpectGet("bookings:passenger:3").SetVal(string(data))
	got, ok, err := cache.Get(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, models.BookingStatusPending, got[0].Status)
	assert.Equal(t, "Campus", got[0].Trip.Origin.Label)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingCacheInvalidate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewBookingCache(client, time.Minute)

	mock.ExpectDel("bookings:passenger:1", "bookings:passenger:2").SetVal(2)
	require.NoError(t, cache.Invalidate(context.Background(), 1, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNilBookingCacheIsNoop(t *testing.T) {
	var cache *BookingCache
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, 1)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, cache.Set(ctx, 1, nil))
	assert.NoError(t, cache.Invalidate(ctx, 1))
}
