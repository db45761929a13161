package lifecycle

import (
	"fmt"
	"time"

	"github.com/campusride/campusride-backend/internal/models"
	"github.com/campusride/campusride-backend/pkg/utils"
)

// TripCategory is a driver "My Trips" tab.
type TripCategory string

const (
	TripCategoryInProgress TripCategory = "in_progress"
	TripCategoryUpcoming   TripCategory = "upcoming"
	TripCategoryDrafts     TripCategory = "drafts"
	TripCategoryCompleted  TripCategory = "completed"
	TripCategoryCanceled   TripCategory = "canceled"
)

type TripBuckets struct {
	InProgress []*models.Trip `json:"inProgress"`
	Upcoming   []*models.Trip `json:"upcoming"`
	Drafts     []*models.Trip `json:"drafts"`
	Completed  []*models.Trip `json:"completed"`
	Canceled   []*models.Trip `json:"canceled"`
}

func (b TripBuckets) Get(c TripCategory) []*models.Trip {
	switch c {
	case TripCategoryInProgress:
		return b.InProgress
	case TripCategoryUpcoming:
		return b.Upcoming
	case TripCategoryDrafts:
		return b.Drafts
	case TripCategoryCompleted:
		return b.Completed
	case TripCategoryCanceled:
		return b.Canceled
	}
	return nil
}

func (b TripBuckets) Len() int {
	return len(b.InProgress) + len(b.Upcoming) + len(b.Drafts) + len(b.Completed) + len(b.Canceled)
}

// CategorizeTrip files a driver's trip. Published trips inside the
// pickup/travel window are shown as in progress.
func CategorizeTrip(t *models.Trip, now time.Time) (TripCategory, bool) {
	if t == nil || !t.Origin.Present() || !t.Destination.Present() {
		return "", false
	}
	switch t.Status {
	case models.TripStatusInProgress:
		return TripCategoryInProgress, true
	case models.TripStatusPublished:
		if IsInProgress(t, now) {
			return TripCategoryInProgress, true
		}
		return TripCategoryUpcoming, true
	case models.TripStatusDraft:
		return TripCategoryDrafts, true
	case models.TripStatusCompleted:
		return TripCategoryCompleted, true
	case models.TripStatusCanceled:
		return TripCategoryCanceled, true
	}
	return "", false
}

// ClassifyTrips partitions a driver's trips, preserving input order.
func ClassifyTrips(trips []*models.Trip, now time.Time) TripBuckets {
	out := TripBuckets{
		InProgress: []*models.Trip{},
		Upcoming:   []*models.Trip{},
		Drafts:     []*models.Trip{},
		Completed:  []*models.Trip{},
		Canceled:   []*models.Trip{},
	}
	for i, t := range trips {
		c, ok := CategorizeTrip(t, now)
		if !ok {
			msg := fmt.Sprintf("dropped nil trip at index %d", i)
			if t != nil {
				msg = fmt.Sprintf("dropped trip %d: status=%q origin/destination present=%t/%t",
					t.ID, t.Status, t.Origin.Present(), t.Destination.Present())
			}
			utils.LogEvent("", "lifecycle", "classify_trips", msg)
			continue
		}
		switch c {
		case TripCategoryInProgress:
			out.InProgress = append(out.InProgress, t)
		case TripCategoryUpcoming:
			out.Upcoming = append(out.Upcoming, t)
		case TripCategoryDrafts:
			out.Drafts = append(out.Drafts, t)
		case TripCategoryCompleted:
			out.Completed = append(out.Completed, t)
		case TripCategoryCanceled:
			out.Canceled = append(out.Canceled, t)
		}
	}
	return out
}
