package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationPreference represents user notification preferences
type NotificationPreference struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"uniqueIndex;not null" json:"userId"`
	User      User           `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// General push notification toggle
	PushEnabled bool `gorm:"column:push_enabled;default:true" json:"pushEnabled"`

	BookingAlerts    bool `gorm:"column:booking_alerts;default:true" json:"bookingAlerts"`
	TripStatusAlerts bool `gorm:"column:trip_status_alerts;default:true" json:"tripStatusAlerts"`
	ReviewAlerts     bool `gorm:"column:review_alerts;default:true" json:"reviewAlerts"`
	ReportAlerts     bool `gorm:"column:report_alerts;default:true" json:"reportAlerts"`

	// Passengers only: subscription to the topic announcing newly published trips
	NewTripAlerts bool `gorm:"column:new_trip_alerts;default:true" json:"newTripAlerts"`
}

// TableName specifies the table name for NotificationPreference
func (NotificationPreference) TableName() string {
	return "notification_preferences"
}

// DefaultPreferences returns default notification preferences for a new user
func DefaultPreferences(userID uint) *NotificationPreference {
	return &NotificationPreference{
		UserID:           userID,
		PushEnabled:      true,
		BookingAlerts:    true,
		TripStatusAlerts: true,
		ReviewAlerts:     true,
		ReportAlerts:     true,
		NewTripAlerts:    true,
	}
}

// WantsNewTrips reports whether the user should be subscribed to the new trips topic.
func (p *NotificationPreference) WantsNewTrips() bool {
	return p == nil || (p.PushEnabled && p.NewTripAlerts)
}

// AllowsPush reports whether a push of the given kind may be sent.
// In-app notifications are always stored; only the push is gated.
func (p *NotificationPreference) AllowsPush(kind NotificationKind) bool {
	if p == nil {
		return true
	}
	if !p.PushEnabled {
		return false
	}
	switch kind {
	case NotificationKindBooking:
		return p.BookingAlerts
	case NotificationKindTrip:
		return p.TripStatusAlerts
	case NotificationKindReview:
		return p.ReviewAlerts
	case NotificationKindReport:
		return p.ReportAlerts
	}
	return true
}
