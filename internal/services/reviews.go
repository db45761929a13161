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
)

type ReviewService struct {
	DB       *gorm.DB
	Notifier *Notifier
	Now      func() time.Time
}

func NewReviewService(db *gorm.DB, notifier *Notifier) *ReviewService {
	return &ReviewService{DB: db, Notifier: notifier, Now: time.Now}
}

func (s *ReviewService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

type ReviewInput struct {
	Rating int
	Text   string
	Tags   []models.ReviewTag
}

// Create stores a passenger's review of a completed trip they rode on.
func (s *ReviewService) Create(ctx context.Context, passengerID, tripID uint, in ReviewInput) (*models.Review, error) {
	if err := lifecycle.ValidateReview(in.Rating, in.Text, in.Tags); err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)

	var trip models.Trip
	err := db.First(&trip, tripID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: trip %d", ErrNotFound, tripID)
	}
	if err != nil {
		return nil, err
	}
	if trip.Status != models.TripStatusCompleted {
		return nil, fmt.Errorf("%w: only completed trips can be reviewed", ErrInvalidState)
	}

	var rode int64
	err = db.Model(&models.Booking{}).
		Where("trip_id = ? AND passenger_id = ? AND status = ?", tripID, passengerID, models.BookingStatusAccepted).
		Count(&rode).Error
	if err != nil {
		return nil, err
	}
	if rode == 0 {
		return nil, fmt.Errorf("%w: you were not a passenger on this trip", ErrForbidden)
	}

	var existing int64
	if err := db.Model(&models.Review{}).Where("trip_id = ? AND passenger_id = ?", tripID, passengerID).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: trip already reviewed", ErrDuplicate)
	}

	now := s.now()
	review := &models.Review{
		TripID:      tripID,
		PassengerID: passengerID,
		DriverID:    trip.DriverID,
		Rating:      in.Rating,
		Text:        in.Text,
		Tags:        models.ReviewTags(in.Tags),
		LockedAt:    lifecycle.ReviewLockDeadline(now),
	}
	review.CreatedAt = now
	if err := db.Create(review).Error; err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	utils.LogEvent("", "review", "create", fmt.Sprintf("review=%d trip=%d rating=%d", review.ID, tripID, review.Rating))
	s.Notifier.Dispatch(ctx, Notice{
		UserID: trip.DriverID,
		Kind:   models.NotificationKindReview,
		Type:   "review_received",
		Title:  "New review",
		Body:   fmt.Sprintf("A passenger rated your trip to %s %d/5", trip.Destination.Label, review.Rating),
		Data:   map[string]string{"tripId": strconv.FormatUint(uint64(tripID), 10), "reviewId": strconv.FormatUint(uint64(review.ID), 10)},
	})
	return review, nil
}

// Update edits a review while its edit window is open.
func (s *ReviewService) Update(ctx context.Context, passengerID, reviewID uint, in ReviewInput) (*models.Review, error) {
	var review models.Review
	db := s.DB.WithContext(ctx)
	err := db.First(&review, reviewID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: review %d", ErrNotFound, reviewID)
	}
	if err != nil {
		return nil, err
	}
	if review.PassengerID != passengerID {
		return nil, fmt.Errorf("%w: not your review", ErrForbidden)
	}
	if !lifecycle.CanEditReview(&review, s.now()) {
		return nil, ErrReviewLocked
	}
	if err := lifecycle.ValidateReview(in.Rating, in.Text, in.Tags); err != nil {
		return nil, err
	}

	review.Rating = in.Rating
	review.Text = in.Text
	review.Tags = models.ReviewTags(in.Tags)
	err = db.Model(&review).Updates(map[string]interface{}{
		"rating": review.Rating,
		"text":   review.Text,
		"tags":   review.Tags,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("update review %d: %w", reviewID, err)
	}
	return &review, nil
}

func (s *ReviewService) ListForTrip(ctx context.Context, tripID uint) ([]*models.Review, error) {
	var reviews []*models.Review
	err := s.DB.WithContext(ctx).
		Preload("Passenger").
		Where("trip_id = ?", tripID).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

// DriverRating is the average rating a driver received.
type DriverRating struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

func (s *ReviewService) RatingForDriver(ctx context.Context, driverID uint) (DriverRating, error) {
	var rating DriverRating
	err := s.DB.WithContext(ctx).Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("driver_id = ?", driverID).
		Scan(&rating).Error
	return rating, err
}
