package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// NotificationKind groups notifications so users can mute them by preference.
type NotificationKind string

const (
	NotificationKindBooking NotificationKind = "booking"
	NotificationKindTrip    NotificationKind = "trip"
	NotificationKindReview  NotificationKind = "review"
	NotificationKindReport  NotificationKind = "report"
)

// NotificationData is stored as a JSON object in a text column.
type NotificationData map[string]string

func (d NotificationData) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]string(d))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (d *NotificationData) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*d = NotificationData{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported notification data type %T", value)
	}
	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*d = m
	return nil
}

// Notification is an in-app message shown in the user's notification list.
type Notification struct {
	gorm.Model
	UserID uint             `json:"userId" gorm:"not null;index"`
	Kind   NotificationKind `json:"kind" gorm:"not null"`
	Type   string           `json:"type" gorm:"not null"`
	Title  string           `json:"title" gorm:"not null"`
	Body   string           `json:"body"`
	Data   NotificationData `json:"data,omitempty" gorm:"type:text"`
	ReadAt *time.Time       `json:"readAt,omitempty"`
}

// TableName specifies the table name
func (Notification) TableName() string {
	return "notifications"
}
