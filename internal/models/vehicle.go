package models

import "gorm.io/gorm"

// Vehicle is a car registered by a driver. Trips are always offered with one.
type Vehicle struct {
	gorm.Model
	DriverID  uint   `json:"driverId" gorm:"not null;index"`
	Driver    *User  `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
	Make      string `json:"make" gorm:"not null"`
	ModelName string `json:"model" gorm:"column:model;not null"`
	Color     string `json:"color" gorm:"not null"`
	Plate     string `json:"plate" gorm:"not null;uniqueIndex"`
	Seats     int    `json:"seats" gorm:"not null"`
	PhotoURL  string `json:"photoUrl,omitempty"`
}

// TableName specifies the table name
func (Vehicle) TableName() string {
	return "vehicles"
}

// MaxVehicleSeats bounds the passenger seats a vehicle can offer.
const MaxVehicleSeats = 8
