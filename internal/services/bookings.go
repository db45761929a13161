package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/campusride/campusride-backend/internal/lifecycle"
	"github.com/campusride/campusride-backend/internal/models"
	"github.com/campusride/campusride-backend/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookingService owns every booking status change.
type BookingService struct {
	DB       *gorm.DB
	Notifier *Notifier
	Cache    *BookingCache
	Now      func() time.Time
}

func NewBookingService(db *gorm.DB, notifier *Notifier, cache *BookingCache) *BookingService {
	return &BookingService{DB: db, Notifier: notifier, Cache: cache, Now: time.Now}
}

type CreateBookingInput struct {
	TripID uint
	Seats  int
	Note   string
}

func (s *BookingService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// lockTrip loads a trip and locks its row for the rest of the transaction.
func lockTrip(tx *gorm.DB, tripID uint) (*models.Trip, error) {
	var trip models.Trip
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&trip, tripID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: trip %d", ErrNotFound, tripID)
	}
	if err != nil {
		return nil, fmt.Errorf("load trip %d: %w", tripID, err)
	}
	return &trip, nil
}

// seatsHeld sums the seats of bookings on the trip with one of the given statuses.
func seatsHeld(tx *gorm.DB, tripID uint, statuses []models.BookingStatus) (int, error) {
	var held int64
	err := tx.Model(&models.Booking{}).
		Select("COALESCE(SUM(seats), 0)").
		Where("trip_id = ? AND status IN ?", tripID, statuses).
		Scan(&held).Error
	if err != nil {
		return 0, fmt.Errorf("count seats for trip %d: %w", tripID, err)
	}
	return int(held), nil
}

// SeatsLeft is the trip capacity minus the seats held by pending and accepted bookings.
func SeatsLeft(ctx context.Context, db *gorm.DB, trip *models.Trip) (int, error) {
	held, err := seatsHeld(db.WithContext(ctx), trip.ID, models.HoldingStatuses)
	if err != nil {
		return 0, err
	}
	left := trip.TotalSeats - held
	if left < 0 {
		left = 0
	}
	return left, nil
}

// Create books seats on a published future trip for a passenger.
func (s *BookingService) Create(ctx context.Context, passengerID uint, in CreateBookingInput) (*models.Booking, error) {
	if in.Seats <= 0 {
		return nil, fmt.Errorf("%w: seats must be positive", ErrInvalidInput)
	}

	var booking models.Booking
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		trip, err := lockTrip(tx, in.TripID)
		if err != nil {
			return err
		}
		if trip.DriverID == passengerID {
			return fmt.Errorf("%w: cannot book your own trip", ErrForbidden)
		}
		if trip.Status != models.TripStatusPublished {
			return fmt.Errorf("%w: trip %d is %s", ErrInvalidState, trip.ID, trip.Status)
		}
		if !trip.DepartureAt.After(s.now()) {
			return fmt.Errorf("%w: trip %d has already departed", ErrInvalidState, trip.ID)
		}

		var open int64
		err = tx.Model(&models.Booking{}).
			Where("trip_id = ? AND passenger_id = ? AND status IN ?", trip.ID, passengerID, models.HoldingStatuses).
			Count(&open).Error
		if err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("%w: you already have an open booking on this trip", ErrDuplicate)
		}

		held, err := seatsHeld(tx, trip.ID, models.HoldingStatuses)
		if err != nil {
			return err
		}
		if held+in.Seats > trip.TotalSeats {
			return fmt.Errorf("%w: %d requested, %d left", ErrNotEnoughSeats, in.Seats, trip.TotalSeats-held)
		}

		booking = models.Booking{
			TripID:      trip.ID,
			PassengerID: passengerID,
			Seats:       in.Seats,
			Note:        in.Note,
			Status:      models.BookingStatusPending,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		booking.Trip = trip
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.LogEvent("", "booking", "create", fmt.Sprintf("booking=%d trip=%d passenger=%d seats=%d", booking.ID, booking.TripID, passengerID, booking.Seats))
	s.afterChange(ctx, &booking, booking.Trip.DriverID, Notice{
		UserID: booking.Trip.DriverID,
		Kind:   models.NotificationKindBooking,
		Type:   "booking_requested",
		Title:  "New booking request",
		Body:   fmt.Sprintf("%d seat(s) requested on your trip to %s", booking.Seats, booking.Trip.Destination.Label),
	})
	return &booking, nil
}

// loadBooking returns a booking with its trip.
func loadBooking(tx *gorm.DB, bookingID uint) (*models.Booking, error) {
	var booking models.Booking
	err := tx.Preload("Trip").First(&booking, bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: booking %d", ErrNotFound, bookingID)
	}
	if err != nil {
		return nil, fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	if booking.Trip == nil {
		return nil, fmt.Errorf("%w: trip of booking %d", ErrNotFound, bookingID)
	}
	return &booking, nil
}

func setBookingStatus(tx *gorm.DB, booking *models.Booking, to models.BookingStatus) error {
	if !lifecycle.CanTransition(booking.Status, to) {
		return fmt.Errorf("%w: booking %d cannot go from %s to %s", ErrInvalidState, booking.ID, booking.Status, to)
	}
	// Guarded on the status read, so a concurrent change makes this one fail.
	res := tx.Model(&models.Booking{}).
		Where("id = ? AND status = ?", booking.ID, booking.Status).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("update booking %d: %w", booking.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: booking %d changed concurrently", ErrInvalidState, booking.ID)
	}
	booking.Status = to
	return nil
}

// Accept is called by the trip's driver. Seats are re-checked against accepted bookings.
func (s *BookingService) Accept(ctx context.Context, driverID, bookingID uint) (*models.Booking, error) {
	var booking *models.Booking
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if booking, err = loadBooking(tx, bookingID); err != nil {
			return err
		}
		if booking.Trip.DriverID != driverID {
			return fmt.Errorf("%w: not your trip", ErrForbidden)
		}
		trip, err := lockTrip(tx, booking.TripID)
		if err != nil {
			return err
		}
		if trip.Status != models.TripStatusPublished {
			return fmt.Errorf("%w: trip %d is %s", ErrInvalidState, trip.ID, trip.Status)
		}
		accepted, err := seatsHeld(tx, trip.ID, []models.BookingStatus{models.BookingStatusAccepted})
		if err != nil {
			return err
		}
		if accepted+booking.Seats > trip.TotalSeats {
			return fmt.Errorf("%w: %d accepted of %d", ErrNotEnoughSeats, accepted, trip.TotalSeats)
		}
		return setBookingStatus(tx, booking, models.BookingStatusAccepted)
	})
	if err != nil {
		return nil, err
	}

	s.afterChange(ctx, booking, driverID, Notice{
		UserID: booking.PassengerID,
		Kind:   models.NotificationKindBooking,
		Type:   "booking_accepted",
		Title:  "Booking accepted",
		Body:   fmt.Sprintf("Your seat to %s is confirmed", booking.Trip.Destination.Label),
	})
	return booking, nil
}

// Decline is called by the trip's driver on a pending booking.
func (s *BookingService) Decline(ctx context.Context, driverID, bookingID uint) (*models.Booking, error) {
	var booking *models.Booking
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if booking, err = loadBooking(tx, bookingID); err != nil {
			return err
		}
		if booking.Trip.DriverID != driverID {
			return fmt.Errorf("%w: not your trip", ErrForbidden)
		}
		return setBookingStatus(tx, booking, models.BookingStatusDeclined)
	})
	if err != nil {
		return nil, err
	}

	s.afterChange(ctx, booking, driverID, Notice{
		UserID: booking.PassengerID,
		Kind:   models.NotificationKindBooking,
		Type:   "booking_declined",
		Title:  "Booking declined",
		Body:   fmt.Sprintf("The driver declined your request for the trip to %s", booking.Trip.Destination.Label),
	})
	return booking, nil
}

// Cancel is called by the passenger before the trip starts.
func (s *BookingService) Cancel(ctx context.Context, passengerID, bookingID uint) (*models.Booking, error) {
	var booking *models.Booking
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if booking, err = loadBooking(tx, bookingID); err != nil {
			return err
		}
		if booking.PassengerID != passengerID {
			return fmt.Errorf("%w: not your booking", ErrForbidden)
		}
		switch booking.Trip.Status {
		case models.TripStatusInProgress, models.TripStatusCompleted:
			return fmt.Errorf("%w: trip already %s", ErrInvalidState, booking.Trip.Status)
		}
		return setBookingStatus(tx, booking, models.BookingStatusCanceledByPassenger)
	})
	if err != nil {
		return nil, err
	}

	s.afterChange(ctx, booking, booking.Trip.DriverID, Notice{
		UserID: booking.Trip.DriverID,
		Kind:   models.NotificationKindBooking,
		Type:   "booking_canceled",
		Title:  "Booking canceled",
		Body:   fmt.Sprintf("A passenger canceled %d seat(s) on your trip to %s", booking.Seats, booking.Trip.Destination.Label),
	})
	return booking, nil
}

// Get returns a booking visible to its passenger or to the trip's driver.
func (s *BookingService) Get(ctx context.Context, userID, bookingID uint) (*models.Booking, error) {
	var booking models.Booking
	err := s.DB.WithContext(ctx).
		Preload("Trip").Preload("Trip.Driver").Preload("Trip.Vehicle").Preload("Passenger").
		First(&booking, bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: booking %d", ErrNotFound, bookingID)
	}
	if err != nil {
		return nil, err
	}
	if booking.PassengerID != userID && (booking.Trip == nil || booking.Trip.DriverID != userID) {
		return nil, fmt.Errorf("%w: booking %d", ErrNotFound, bookingID)
	}
	return &booking, nil
}

// ListForPassenger returns the passenger's bookings with their trips, newest first.
// Results are served from the cache when possible.
func (s *BookingService) ListForPassenger(ctx context.Context, passengerID uint) ([]*models.Booking, error) {
	if cached, ok, err := s.Cache.Get(ctx, passengerID); err != nil {
		utils.LogEvent("", "booking", "cache_get", err.Error())
	} else if ok {
		return cached, nil
	}

	var bookings []*models.Booking
	err := s.DB.WithContext(ctx).
		Preload("Trip").Preload("Trip.Driver").Preload("Trip.Vehicle").
		Where("passenger_id = ?", passengerID).
		Order("created_at DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	if err := s.Cache.Set(ctx, passengerID, bookings); err != nil {
		utils.LogEvent("", "booking", "cache_set", err.Error())
	}
	return bookings, nil
}

// ListForTrip returns every booking of a trip to its driver.
func (s *BookingService) ListForTrip(ctx context.Context, driverID, tripID uint) ([]*models.Booking, error) {
	var trip models.Trip
	err := s.DB.WithContext(ctx).First(&trip, tripID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: trip %d", ErrNotFound, tripID)
	}
	if err != nil {
		return nil, err
	}
	if trip.DriverID != driverID {
		return nil, fmt.Errorf("%w: not your trip", ErrForbidden)
	}

	var bookings []*models.Booking
	err = s.DB.WithContext(ctx).
		Preload("Passenger").
		Where("trip_id = ?", tripID).
		Order("created_at ASC").
		Find(&bookings).Error
	return bookings, err
}

func (s *BookingService) afterChange(ctx context.Context, booking *models.Booking, driverID uint, notice Notice) {
	if err := s.Cache.Invalidate(ctx, booking.PassengerID); err != nil {
		utils.LogEvent("", "booking", "cache_invalidate", err.Error())
	}
	s.Notifier.BookingChanged(ctx, booking, driverID)

	notice.Data = map[string]string{
		"bookingId": strconv.FormatUint(uint64(booking.ID), 10),
		"tripId":    strconv.FormatUint(uint64(booking.TripID), 10),
		"status":    string(booking.Status),
	}
	s.Notifier.Dispatch(ctx, notice)
}
