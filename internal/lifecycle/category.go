package lifecycle

import (
	"fmt"

	"github.com/campusride/campusride-backend/internal/models"
	"github.com/campusride/campusride-backend/pkg/utils"
)

// Category is a passenger "My Trips" tab.
type Category string

const (
	CategoryInProgress Category = "in_progress"
	CategoryReserved   Category = "reserved"
	CategoryCompleted  Category = "completed"
	CategoryCanceled   Category = "canceled"
)

// Categories lists the passenger tabs in display order.
var Categories = []Category{CategoryInProgress, CategoryReserved, CategoryCompleted, CategoryCanceled}

// Buckets holds the bookings of each category, in input order.
type Buckets struct {
	InProgress []*models.Booking `json:"inProgress"`
	Reserved   []*models.Booking `json:"reserved"`
	Completed  []*models.Booking `json:"completed"`
	Canceled   []*models.Booking `json:"canceled"`
}

func newBuckets() Buckets {
	return Buckets{
		InProgress: []*models.Booking{},
		Reserved:   []*models.Booking{},
		Completed:  []*models.Booking{},
		Canceled:   []*models.Booking{},
	}
}

// Get returns the bookings filed under c, or nil for an unknown category.
func (b Buckets) Get(c Category) []*models.Booking {
	switch c {
	case CategoryInProgress:
		return b.InProgress
	case CategoryReserved:
		return b.Reserved
	case CategoryCompleted:
		return b.Completed
	case CategoryCanceled:
		return b.Canceled
	}
	return nil
}

// Len is the number of classified bookings across all categories.
func (b Buckets) Len() int {
	return len(b.InProgress) + len(b.Reserved) + len(b.Completed) + len(b.Canceled)
}

func (b *Buckets) add(c Category, booking *models.Booking) {
	switch c {
	case CategoryInProgress:
		b.InProgress = append(b.InProgress, booking)
	case CategoryReserved:
		b.Reserved = append(b.Reserved, booking)
	case CategoryCompleted:
		b.Completed = append(b.Completed, booking)
	case CategoryCanceled:
		b.Canceled = append(b.Canceled, booking)
	}
}

// WellFormed reports whether a booking carries a trip with both endpoints.
func WellFormed(b *models.Booking) bool {
	return b != nil && b.Trip != nil && b.Trip.Origin.Present() && b.Trip.Destination.Present()
}

// Categorize files a single booking. The second result is false for malformed
// bookings and for unknown booking or trip statuses.
//
// A canceled trip wins over the booking status, so an accepted or a pending
// booking on a canceled trip is shown as canceled, not reserved. An accepted
// booking on a trip moved back to draft still holds its seats and stays reserved.
func Categorize(b *models.Booking) (Category, bool) {
	if !WellFormed(b) {
		return "", false
	}
	bs, ts := b.Status, b.Trip.Status
	if !bs.Valid() || !ts.Valid() {
		return "", false
	}

	switch {
	case bs == models.BookingStatusAccepted && ts == models.TripStatusInProgress:
		return CategoryInProgress, true
	case ts == models.TripStatusCanceled:
		return CategoryCanceled, true
	case bs == models.BookingStatusPending:
		return CategoryReserved, true
	case bs == models.BookingStatusAccepted && (ts == models.TripStatusPublished || ts == models.TripStatusDraft):
		return CategoryReserved, true
	case bs == models.BookingStatusAccepted && ts == models.TripStatusCompleted:
		return CategoryCompleted, true
	case bs.Closed():
		return CategoryCanceled, true
	}
	return "", false
}

// Classify partitions bookings into the passenger tabs. Malformed records and
// unknown statuses are logged and left out.
func Classify(bookings []*models.Booking) Buckets {
	out := newBuckets()
	for i, b := range bookings {
		c, ok := Categorize(b)
		if !ok {
			utils.LogEvent("", "lifecycle", "classify_bookings", describeDropped(i, b))
			continue
		}
		out.add(c, b)
	}
	return out
}

func describeDropped(index int, b *models.Booking) string {
	switch {
	case b == nil:
		return fmt.Sprintf("dropped nil booking at index %d", index)
	case b.Trip == nil:
		return fmt.Sprintf("dropped booking %d: missing trip", b.ID)
	case !b.Trip.Origin.Present() || !b.Trip.Destination.Present():
		return fmt.Sprintf("dropped booking %d: trip %d missing origin or destination", b.ID, b.Trip.ID)
	}
	return fmt.Sprintf("dropped booking %d: unknown status pair booking=%q trip=%q", b.ID, b.Status, b.Trip.Status)
}
