package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type TripStatus string

const (
	TripStatusDraft      TripStatus = "draft"
	TripStatusPublished  TripStatus = "published"
	TripStatusInProgress TripStatus = "in_progress"
	TripStatusCanceled   TripStatus = "canceled"
	TripStatusCompleted  TripStatus = "completed"
)

// Valid reports whether s is one of the known trip statuses.
func (s TripStatus) Valid() bool {
	switch s {
	case TripStatusDraft, TripStatusPublished, TripStatusInProgress, TripStatusCanceled, TripStatusCompleted:
		return true
	}
	return false
}

// Place is a free-text location with optional coordinates.
type Place struct {
	Label string   `json:"label" gorm:"column:label"`
	Lat   *float64 `json:"lat,omitempty" gorm:"column:lat"`
	Lng   *float64 `json:"lng,omitempty" gorm:"column:lng"`
}

// Present reports whether the place carries a label.
func (p Place) Present() bool {
	return strings.TrimSpace(p.Label) != ""
}

func (p Place) HasCoordinates() bool {
	return p.Lat != nil && p.Lng != nil
}

// Trip is a journey offered by a driver.
type Trip struct {
	gorm.Model
	DriverID           uint       `json:"driverId" gorm:"not null;index"`
	Driver             *User      `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
	VehicleID          uint       `json:"vehicleId" gorm:"not null"`
	Vehicle            *Vehicle   `json:"vehicle,omitempty" gorm:"foreignKey:VehicleID"`
	Origin             Place      `json:"origin" gorm:"embedded;embeddedPrefix:origin_"`
	Destination        Place      `json:"destination" gorm:"embedded;embeddedPrefix:destination_"`
	DepartureAt        time.Time  `json:"departureAt" gorm:"not null;index"`
	EstimatedArrivalAt time.Time  `json:"estimatedArrivalAt"`
	PricePerSeat       float64    `json:"pricePerSeat" gorm:"not null"`
	TotalSeats         int        `json:"totalSeats" gorm:"not null"`
	Status             TripStatus `json:"status" gorm:"not null;default:'draft';index"`
	Notes              string     `json:"notes,omitempty"`
}

// TableName specifies the table name
func (Trip) TableName() string {
	return "trips"
}
