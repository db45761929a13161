package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/campusride/campusride-backend/internal/lifecycle"
	"github.com/campusride/campusride-backend/internal/models"
	"github.com/campusride/campusride-backend/pkg/utils"
	"gorm.io/gorm"
)

// TripService owns trip creation, edits and the trip lifecycle.
type TripService struct {
	DB       *gorm.DB
	Notifier *Notifier
	Cache    *BookingCache
	Push     *PushSender
	Now      func() time.Time
}

func NewTripService(db *gorm.DB, notifier *Notifier, cache *BookingCache, push *PushSender) *TripService {
	return &TripService{DB: db, Notifier: notifier, Cache: cache, Push: push, Now: time.Now}
}

func (s *TripService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// TripInput is the editable part of a trip.
type TripInput struct {
	VehicleID          uint
	Origin             models.Place
	Destination        models.Place
	DepartureAt        time.Time
	EstimatedArrivalAt time.Time
	PricePerSeat       float64
	TotalSeats         int
	Notes              string
}

// TripWithSeats pairs a trip with its free seats.
type TripWithSeats struct {
	*models.Trip
	SeatsLeft int `json:"seatsLeft"`
}

// ValidateTripInput checks the fields of a new or edited trip against now.
func ValidateTripInput(in TripInput, now time.Time) error {
	switch {
	case !in.Origin.Present():
		return lifecycle.ValidationError{Field: "origin", Msg: "origin is required"}
	case !in.Destination.Present():
		return lifecycle.ValidationError{Field: "destination", Msg: "destination is required"}
	case in.DepartureAt.IsZero() || !in.DepartureAt.After(now):
		return lifecycle.ValidationError{Field: "departureAt", Msg: "departure must be in the future"}
	case !in.EstimatedArrivalAt.IsZero() && !in.EstimatedArrivalAt.After(in.DepartureAt):
		return lifecycle.ValidationError{Field: "estimatedArrivalAt", Msg: "arrival must be after departure"}
	case in.PricePerSeat < 0:
		return lifecycle.ValidationError{Field: "pricePerSeat", Msg: "price cannot be negative"}
	case in.TotalSeats <= 0:
		return lifecycle.ValidationError{Field: "totalSeats", Msg: "at least one seat is required"}
	}
	return nil
}

func (s *TripService) driverVehicle(ctx context.Context, driverID, vehicleID uint) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := s.DB.WithContext(ctx).Where("id = ? AND driver_id = ?", vehicleID, driverID).First(&vehicle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, lifecycle.ValidationError{Field: "vehicleId", Msg: "vehicle not found"}
	}
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (s *TripService) checkInput(ctx context.Context, driverID uint, in TripInput) error {
	if err := ValidateTripInput(in, s.now()); err != nil {
		return err
	}
	vehicle, err := s.driverVehicle(ctx, driverID, in.VehicleID)
	if err != nil {
		return err
	}
	if in.TotalSeats > vehicle.Seats {
		return lifecycle.ValidationError{Field: "totalSeats", Msg: fmt.Sprintf("vehicle only has %d seats", vehicle.Seats)}
	}
	return nil
}

// Create stores a draft trip, published right away when publish is set.
func (s *TripService) Create(ctx context.Context, driverID uint, in TripInput, publish bool) (*models.Trip, error) {
	if err := s.checkInput(ctx, driverID, in); err != nil {
		return nil, err
	}

	trip := &models.Trip{
		DriverID:           driverID,
		VehicleID:          in.VehicleID,
		Origin:             in.Origin,
		Destination:        in.Destination,
		DepartureAt:        in.DepartureAt,
		EstimatedArrivalAt: in.EstimatedArrivalAt,
		PricePerSeat:       in.PricePerSeat,
		TotalSeats:         in.TotalSeats,
		Notes:              in.Notes,
		Status:             models.TripStatusDraft,
	}
	if publish {
		trip.Status = models.TripStatusPublished
	}
	if err := s.DB.WithContext(ctx).Create(trip).Error; err != nil {
		return nil, fmt.Errorf("create trip: %w", err)
	}

	utils.LogEvent("", "trip", "create", fmt.Sprintf("trip=%d driver=%d status=%s", trip.ID, driverID, trip.Status))
	if publish {
		s.announce(ctx, trip)
	}
	return trip, nil
}

// Update edits a draft or published trip. Seats cannot drop below those already held.
func (s *TripService) Update(ctx context.Context, driverID, tripID uint, in TripInput) (*models.Trip, error) {
	if err := s.checkInput(ctx, driverID, in); err != nil {
		return nil, err
	}

	var trip *models.Trip
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if trip, err = lockTrip(tx, tripID); err != nil {
			return err
		}
		if trip.DriverID != driverID {
			return fmt.Errorf("%w: not your trip", ErrForbidden)
		}
		if trip.Status != models.TripStatusDraft && trip.Status != models.TripStatusPublished {
			return fmt.Errorf("%w: trip %d is %s", ErrInvalidState, trip.ID, trip.Status)
		}
		held, err := seatsHeld(tx, trip.ID, models.HoldingStatuses)
		if err != nil {
			return err
		}
		if in.TotalSeats < held {
			return fmt.Errorf("%w: %d seats already booked", ErrNotEnoughSeats, held)
		}

		trip.VehicleID = in.VehicleID
		trip.Origin = in.Origin
		trip.Destination = in.Destination
		trip.DepartureAt = in.DepartureAt
		trip.EstimatedArrivalAt = in.EstimatedArrivalAt
		trip.PricePerSeat = in.PricePerSeat
		trip.TotalSeats = in.TotalSeats
		trip.Notes = in.Notes
		return tx.Save(trip).Error
	})
	if err != nil {
		return nil, err
	}

	s.refreshPassengers(ctx, trip, nil)
	return trip, nil
}

// Transition moves a trip to a new status on behalf of its driver and settles
// the bookings the move affects.
func (s *TripService) Transition(ctx context.Context, driverID, tripID uint, to models.TripStatus) (*models.Trip, error) {
	var (
		trip     *models.Trip
		affected []*models.Booking
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if trip, err = lockTrip(tx, tripID); err != nil {
			return err
		}
		if trip.DriverID != driverID {
			return fmt.Errorf("%w: not your trip", ErrForbidden)
		}
		if !lifecycle.CanTransitionTrip(trip.Status, to) {
			return fmt.Errorf("%w: trip %d cannot go from %s to %s", ErrInvalidState, trip.ID, trip.Status, to)
		}

		switch to {
		case models.TripStatusPublished:
			if !trip.DepartureAt.After(s.now()) {
				return fmt.Errorf("%w: departure is in the past", ErrInvalidState)
			}
		case models.TripStatusDraft:
			accepted, err := seatsHeld(tx, trip.ID, []models.BookingStatus{models.BookingStatusAccepted})
			if err != nil {
				return err
			}
			if accepted > 0 {
				return fmt.Errorf("%w: trip has accepted bookings", ErrInvalidState)
			}
		}

		if err := tx.Model(trip).Update("status", to).Error; err != nil {
			return fmt.Errorf("update trip %d: %w", trip.ID, err)
		}
		trip.Status = to

		affected, err = settleBookings(tx, trip)
		return err
	})
	if err != nil {
		return nil, err
	}

	utils.LogEvent("", "trip", string(to), fmt.Sprintf("trip=%d driver=%d bookings_settled=%d", trip.ID, driverID, len(affected)))
	s.afterTransition(ctx, trip, affected)
	return trip, nil
}

// settleBookings closes the bookings a trip status change invalidates:
// canceling closes pending and accepted ones, starting or unpublishing closes
// pending ones. It returns every booking whose status changed.
func settleBookings(tx *gorm.DB, trip *models.Trip) ([]*models.Booking, error) {
	var closeAccepted bool
	switch trip.Status {
	case models.TripStatusCanceled:
		closeAccepted = true
	case models.TripStatusInProgress, models.TripStatusDraft:
	default:
		return nil, nil
	}

	var bookings []*models.Booking
	if err := tx.Where("trip_id = ? AND status IN ?", trip.ID, models.HoldingStatuses).Find(&bookings).Error; err != nil {
		return nil, err
	}

	var settled []*models.Booking
	for _, b := range bookings {
		to := models.BookingStatusDeclinedAuto
		if b.Status == models.BookingStatusAccepted {
			if !closeAccepted {
				continue
			}
			to = models.BookingStatusCanceledByPlatform
		}
		if err := setBookingStatus(tx, b, to); err != nil {
			return nil, err
		}
		b.Trip = trip
		settled = append(settled, b)
	}
	return settled, nil
}

func (s *TripService) afterTransition(ctx context.Context, trip *models.Trip, affected []*models.Booking) {
	if trip.Status == models.TripStatusPublished {
		s.announce(ctx, trip)
	}

	passengerIDs := s.refreshPassengers(ctx, trip, affected)
	for _, b := range affected {
		s.Notifier.BookingChanged(ctx, b, trip.DriverID)
	}

	title, body := tripStatusMessage(trip)
	if title == "" {
		return
	}
	s.Notifier.NotifyAll(ctx, passengerIDs, Notice{
		Kind:  models.NotificationKindTrip,
		Type:  "trip_" + string(trip.Status),
		Title: title,
		Body:  body,
		Data: map[string]string{
			"tripId": strconv.FormatUint(uint64(trip.ID), 10),
			"status": string(trip.Status),
		},
	})
}

// refreshPassengers drops the cached booking lists of every passenger of the
// trip, since those lists embed the trip, and pushes the live trip update.
// It returns the passengers it found.
func (s *TripService) refreshPassengers(ctx context.Context, trip *models.Trip, affected []*models.Booking) []uint {
	passengerIDs, err := s.passengerIDs(ctx, trip.ID)
	if err != nil {
		utils.LogEvent("", "trip", "passengers", err.Error())
	}
	stale := append([]uint{}, passengerIDs...)
	for _, b := range affected {
		stale = append(stale, b.PassengerID)
	}
	if err := s.Cache.Invalidate(ctx, stale...); err != nil {
		utils.LogEvent("", "trip", "cache_invalidate", err.Error())
	}
	s.Notifier.TripChanged(ctx, trip, passengerIDs)
	return passengerIDs
}

func tripStatusMessage(trip *models.Trip) (string, string) {
	to := trip.Destination.Label
	switch trip.Status {
	case models.TripStatusInProgress:
		return "Trip started", fmt.Sprintf("Your trip to %s is underway", to)
	case models.TripStatusCompleted:
		return "Trip completed", fmt.Sprintf("You arrived in %s. Leave a review for your driver", to)
	case models.TripStatusCanceled:
		return "Trip canceled", fmt.Sprintf("The driver canceled the trip to %s", to)
	case models.TripStatusDraft:
		return "Trip withdrawn", fmt.Sprintf("The trip to %s is no longer offered", to)
	}
	return "", ""
}

// passengerIDs lists every passenger with a booking on the trip, whatever its status.
func (s *TripService) passengerIDs(ctx context.Context, tripID uint) ([]uint, error) {
	var ids []uint
	err := s.DB.WithContext(ctx).Model(&models.Booking{}).
		Distinct("passenger_id").
		Where("trip_id = ?", tripID).
		Pluck("passenger_id", &ids).Error
	return ids, err
}

func (s *TripService) announce(ctx context.Context, trip *models.Trip) {
	if !s.Push.Enabled() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	payload := NotificationPayload{
		Title: "New trip available",
		Body: fmt.Sprintf("%s → %s on %s", trip.Origin.Label, trip.Destination.Label,
			trip.DepartureAt.Format("Mon 2 Jan 15:04")),
		Data: map[string]interface{}{"type": "trip_published", "tripId": trip.ID},
	}
	go func() {
		if err := s.Push.SendToTopic(ctx, PassengersTopic, payload); err != nil {
			utils.LogEvent("", "trip", "announce", err.Error())
		}
	}()
}

// Get returns a trip with driver and vehicle.
func (s *TripService) Get(ctx context.Context, tripID uint) (*models.Trip, error) {
	var trip models.Trip
	err := s.DB.WithContext(ctx).Preload("Driver").Preload("Vehicle").First(&trip, tripID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: trip %d", ErrNotFound, tripID)
	}
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

func (s *TripService) ListForDriver(ctx context.Context, driverID uint) ([]*models.Trip, error) {
	var trips []*models.Trip
	err := s.DB.WithContext(ctx).
		Preload("Vehicle").
		Where("driver_id = ?", driverID).
		Order("departure_at DESC").
		Find(&trips).Error
	return trips, err
}

// TripSearch filters published future trips. Zero fields are ignored.
type TripSearch struct {
	Origin      string
	Destination string
	Date        time.Time
	Seats       int
	Lat         *float64
	Lng         *float64
	RadiusKm    float64
}

const (
	defaultSearchRadiusKm = 5
	maxSearchResults      = 50
)

// Search returns bookable trips, soonest first.
func (s *TripService) Search(ctx context.Context, q TripSearch) ([]TripWithSeats, error) {
	query := s.DB.WithContext(ctx).
		Preload("Driver").Preload("Vehicle").
		Where("status = ? AND departure_at > ?", models.TripStatusPublished, s.now())

	if q.Origin != "" {
		query = query.Where("origin_label ILIKE ?", "%"+escapeLike(q.Origin)+"%")
	}
	if q.Destination != "" {
		query = query.Where("destination_label ILIKE ?", "%"+escapeLike(q.Destination)+"%")
	}
	if !q.Date.IsZero() {
		day := time.Date(q.Date.Year(), q.Date.Month(), q.Date.Day(), 0, 0, 0, 0, q.Date.Location())
		query = query.Where("departure_at >= ? AND departure_at < ?", day, day.AddDate(0, 0, 1))
	}

	radius := q.RadiusKm
	if radius <= 0 {
		radius = defaultSearchRadiusKm
	}
	nearby := q.Lat != nil && q.Lng != nil
	if nearby {
		box := utils.GetBoundingBox(*q.Lat, *q.Lng, radius)
		query = query.Where("origin_lat BETWEEN ? AND ? AND origin_lng BETWEEN ? AND ?",
			box.SouthWest.Lat, box.NorthEast.Lat, box.SouthWest.Lng, box.NorthEast.Lng)
	}

	var trips []*models.Trip
	if err := query.Order("departure_at ASC").Limit(maxSearchResults).Find(&trips).Error; err != nil {
		return nil, fmt.Errorf("search trips: %w", err)
	}

	held, err := s.heldByTrip(ctx, trips)
	if err != nil {
		return nil, err
	}

	wanted := q.Seats
	if wanted <= 0 {
		wanted = 1
	}
	results := make([]TripWithSeats, 0, len(trips))
	for _, trip := range trips {
		if nearby && (!trip.Origin.HasCoordinates() ||
			!utils.IsWithinRadius(*q.Lat, *q.Lng, *trip.Origin.Lat, *trip.Origin.Lng, radius)) {
			continue
		}
		left := trip.TotalSeats - held[trip.ID]
		if left < wanted {
			continue
		}
		results = append(results, TripWithSeats{Trip: trip, SeatsLeft: left})
	}

	if nearby {
		sort.SliceStable(results, func(i, j int) bool {
			di := utils.HaversineDistance(*q.Lat, *q.Lng, *results[i].Origin.Lat, *results[i].Origin.Lng)
			dj := utils.HaversineDistance(*q.Lat, *q.Lng, *results[j].Origin.Lat, *results[j].Origin.Lng)
			return di < dj
		})
	}
	return results, nil
}

func (s *TripService) heldByTrip(ctx context.Context, trips []*models.Trip) (map[uint]int, error) {
	held := make(map[uint]int, len(trips))
	if len(trips) == 0 {
		return held, nil
	}
	ids := make([]uint, len(trips))
	for i, t := range trips {
		ids[i] = t.ID
	}

	var rows []struct {
		TripID uint
		Seats  int
	}
	err := s.DB.WithContext(ctx).Model(&models.Booking{}).
		Select("trip_id, COALESCE(SUM(seats), 0) AS seats").
		Where("trip_id IN ? AND status IN ?", ids, models.HoldingStatuses).
		Group("trip_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count held seats: %w", err)
	}
	for _, r := range rows {
		held[r.TripID] = r.Seats
	}
	return held, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
