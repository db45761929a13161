package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/campusride/campusride-backend/internal/models"
	"github.com/campusride/campusride-backend/pkg/utils"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookingJobs closes pending bookings that can no longer be answered.
type BookingJobs struct {
	DB       *gorm.DB
	Notifier *Notifier
	Cache    *BookingCache
	Now      func() time.Time
}

type staleBooking struct {
	ID          uint
	TripID      uint
	PassengerID uint
}

func (j *BookingJobs) now() time.Time {
	if j.Now == nil {
		return time.Now()
	}
	return j.Now()
}

// ExpirePendingBookings marks pending bookings whose trip already departed as expired.
func (j *BookingJobs) ExpirePendingBookings(ctx context.Context) (int, error) {
	var stale []staleBooking
	err := j.DB.WithContext(ctx).Model(&models.Booking{}).
		Select("bookings.id, bookings.trip_id, bookings.passenger_id").
		Joins("JOIN trips ON trips.id = bookings.trip_id").
		Where("bookings.status = ? AND trips.departure_at < ?", models.BookingStatusPending, j.now()).
		Find(&stale).Error
	if err != nil {
		return 0, fmt.Errorf("find expired bookings: %w", err)
	}
	return j.close(ctx, stale, models.BookingStatusExpired, Notice{
		Kind:  models.NotificationKindBooking,
		Type:  "booking_expired",
		Title: "Booking expired",
		Body:  "The driver did not answer your request before departure",
	})
}

// AutoDeclineBookings declines pending bookings on trips that are no longer published.
func (j *BookingJobs) AutoDeclineBookings(ctx context.Context) (int, error) {
	var stale []staleBooking
	err := j.DB.WithContext(ctx).Model(&models.Booking{}).
		Select("bookings.id, bookings.trip_id, bookings.passenger_id").
		Joins("JOIN trips ON trips.id = bookings.trip_id").
		Where("bookings.status = ? AND trips.status <> ?", models.BookingStatusPending, models.TripStatusPublished).
		Find(&stale).Error
	if err != nil {
		return 0, fmt.Errorf("find bookings on closed trips: %w", err)
	}
	return j.close(ctx, stale, models.BookingStatusDeclinedAuto, Notice{
		Kind:  models.NotificationKindBooking,
		Type:  "booking_declined_auto",
		Title: "Booking declined",
		Body:  "The trip is no longer available",
	})
}

func (j *BookingJobs) close(ctx context.Context, stale []staleBooking, to models.BookingStatus, notice Notice) (int, error) {
	if len(stale) == 0 {
		return 0, nil
	}

	ids := make([]uint, len(stale))
	for i, b := range stale {
		ids[i] = b.ID
	}

	// The status guard skips bookings answered since they were selected;
	// RETURNING yields the rows actually closed.
	var closed []models.Booking
	res := j.DB.WithContext(ctx).Model(&closed).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}, {Name: "trip_id"}, {Name: "passenger_id"}}}).
		Where("id IN ? AND status = ?", ids, models.BookingStatusPending).
		Update("status", to)
	if res.Error != nil {
		return 0, fmt.Errorf("close bookings: %w", res.Error)
	}
	if len(closed) == 0 {
		return 0, nil
	}

	passengers := make([]uint, len(closed))
	notices := make([]Notice, len(closed))
	for i := range closed {
		b := &closed[i]
		b.Status = to
		passengers[i] = b.PassengerID

		n := notice
		n.UserID = b.PassengerID
		n.Data = map[string]string{
			"bookingId": strconv.FormatUint(uint64(b.ID), 10),
			"tripId":    strconv.FormatUint(uint64(b.TripID), 10),
			"status":    string(to),
		}
		notices[i] = n
		j.Notifier.BookingChanged(ctx, b, 0)
	}

	if err := j.Cache.Invalidate(ctx, passengers...); err != nil {
		utils.LogEvent("", "jobs", "cache_invalidate", err.Error())
	}
	j.Notifier.Dispatch(ctx, notices...)

	return len(closed), nil
}

// StartScheduler runs the booking jobs every interval until the scheduler is shut down.
func StartScheduler(jobs *BookingJobs, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	tasks := map[string]func(context.Context) (int, error){
		"expire-pending-bookings": jobs.ExpirePendingBookings,
		"auto-decline-bookings":   jobs.AutoDeclineBookings,
	}
	for name, run := range tasks {
		_, err := sched.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(runJob, name, run),
			gocron.WithName(name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", name, err)
		}
	}

	sched.Start()
	log.Printf("Scheduler started with %d jobs every %s", len(sched.Jobs()), interval)
	return sched, nil
}

func runJob(name string, run func(context.Context) (int, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := run(ctx)
	if err != nil {
		utils.LogEvent("", "jobs", name, err.Error())
		return
	}
	if n > 0 {
		utils.LogEvent("", "jobs", name, fmt.Sprintf("closed %d bookings", n))
	}
}
