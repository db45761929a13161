package lifecycle

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/campusride/campusride-backend/internal/models"
)

const (
	ReviewEditWindow = 24 * time.Hour
	MaxReviewText    = 1000
	MaxReviewTags    = 5
)

// ValidationError reports a rejected field value.
type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// ReviewLockDeadline is the instant after which a review can no longer change.
func ReviewLockDeadline(createdAt time.Time) time.Time {
	return createdAt.Add(ReviewEditWindow)
}

// CanEditReview reports whether r is still editable at now. Reviews without a
// lock time are treated as locked.
func CanEditReview(r *models.Review, now time.Time) bool {
	if r == nil || r.LockedAt.IsZero() {
		return false
	}
	return now.Before(r.LockedAt)
}

// ValidateReview checks rating, text length and tags against the vocabulary.
func ValidateReview(rating int, text string, tags []models.ReviewTag) error {
	if rating < 1 || rating > 5 {
		return ValidationError{Field: "rating", Msg: "must be between 1 and 5"}
	}
	if utf8.RuneCountInString(text) > MaxReviewText {
		return ValidationError{Field: "text", Msg: fmt.Sprintf("must be at most %d characters", MaxReviewText)}
	}
	if len(tags) > MaxReviewTags {
		return ValidationError{Field: "tags", Msg: fmt.Sprintf("at most %d tags allowed", MaxReviewTags)}
	}
	seen := make(map[models.ReviewTag]bool, len(tags))
	for _, tag := range tags {
		if !tag.Valid() {
			return ValidationError{Field: "tags", Msg: fmt.Sprintf("unknown tag %q", tag)}
		}
		if seen[tag] {
			return ValidationError{Field: "tags", Msg: fmt.Sprintf("duplicate tag %q", tag)}
		}
		seen[tag] = true
	}
	return nil
}
