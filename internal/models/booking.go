package models

import "gorm.io/gorm"

type BookingStatus string

const (
	BookingStatusPending             BookingStatus = "pending"
	BookingStatusAccepted            BookingStatus = "accepted"
	BookingStatusDeclined            BookingStatus = "declined"
	BookingStatusCanceledByPassenger BookingStatus = "canceled_by_passenger"
	BookingStatusCanceledByPlatform  BookingStatus = "canceled_by_platform"
	BookingStatusExpired             BookingStatus = "expired"
	BookingStatusDeclinedAuto        BookingStatus = "declined_auto"
)

// Valid reports whether s is one of the known booking statuses.
func (s BookingStatus) Valid() bool {
	return s == BookingStatusPending || s == BookingStatusAccepted || s.Closed()
}

// Closed reports whether the booking no longer holds seats on its trip.
func (s BookingStatus) Closed() bool {
	switch s {
	case BookingStatusDeclined,
		BookingStatusCanceledByPassenger,
		BookingStatusCanceledByPlatform,
		BookingStatusExpired,
		BookingStatusDeclinedAuto:
		return true
	}
	return false
}

// HoldingStatuses are the statuses whose seats count against a trip's capacity.
var HoldingStatuses = []BookingStatus{BookingStatusPending, BookingStatusAccepted}

// Booking is a passenger's request for seats on a trip.
type Booking struct {
	gorm.Model
	TripID      uint          `json:"tripId" gorm:"not null;index"`
	Trip        *Trip         `json:"trip,omitempty" gorm:"foreignKey:TripID"`
	PassengerID uint          `json:"passengerId" gorm:"not null;index"`
	Passenger   *User         `json:"passenger,omitempty" gorm:"foreignKey:PassengerID"`
	Seats       int           `json:"seats" gorm:"not null"`
	Note        string        `json:"note,omitempty"`
	Status      BookingStatus `json:"status" gorm:"not null;default:'pending';index"`
	IsPaid      bool          `json:"isPaid" gorm:"not null;default:false"`
}

// TableName specifies the table name
func (Booking) TableName() string {
	return "bookings"
}
