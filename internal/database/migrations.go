package database

import (
	"fmt"
	"strings"

	"github.com/campusride/campusride-backend/internal/models"
	"gorm.io/gorm"
)

// statusConstraints keeps the enum-like text columns honest at the database level.
var statusConstraints = []struct {
	table, name, check string
}{
	{"users", "users_user_type_check", "user_type IN ('passenger', 'driver')"},
	{"trips", "trips_status_check", "status IN ('draft', 'published', 'in_progress', 'canceled', 'completed')"},
	{"trips", "trips_total_seats_check", "total_seats > 0"},
	{"bookings", "bookings_status_check", "status IN ('pending', 'accepted', 'declined', 'canceled_by_passenger', 'canceled_by_platform', 'expired', 'declined_auto')"},
	{"bookings", "bookings_seats_check", "seats > 0"},
	{"reviews", "reviews_rating_check", "rating >= 1 AND rating <= 5"},
	{"reports", "reports_status_check", "status IN ('open', 'reviewed', 'dismissed')"},
}

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Vehicle{},
		&models.Trip{},
		&models.Booking{},
		&models.Review{},
		&models.Notification{},
		&models.NotificationPreference{},
		&models.Report{},
	)
	if err != nil {
		return err
	}

	for _, c := range statusConstraints {
		if err := db.Exec(fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s", c.table, c.name)).Error; err != nil {
			return err
		}
		if err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)", c.table, c.name, c.check)).Error; err != nil {
			return fmt.Errorf("add constraint %s: %w", c.name, err)
		}
	}

	// Only one open booking per passenger and trip.
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_open_passenger_trip
		ON bookings (trip_id, passenger_id)
		WHERE deleted_at IS NULL AND status IN (` + quoted(models.HoldingStatuses) + `)`).Error
}

func quoted(statuses []models.BookingStatus) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = "'" + string(s) + "'"
	}
	return strings.Join(parts, ", ")
}
