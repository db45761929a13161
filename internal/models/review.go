package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type ReviewTag string

const (
	ReviewTagPunctual          ReviewTag = "punctual"
	ReviewTagFriendly          ReviewTag = "friendly"
	ReviewTagSafeDriving       ReviewTag = "safe_driving"
	ReviewTagCleanCar          ReviewTag = "clean_car"
	ReviewTagGoodMusic         ReviewTag = "good_music"
	ReviewTagSmoothRide        ReviewTag = "smooth_ride"
	ReviewTagFlexiblePickup    ReviewTag = "flexible_pickup"
	ReviewTagGreatConversation ReviewTag = "great_conversation"
)

// ReviewTagVocabulary lists every tag a review may carry, in display order.
var ReviewTagVocabulary = []ReviewTag{
	ReviewTagPunctual,
	ReviewTagFriendly,
	ReviewTagSafeDriving,
	ReviewTagCleanCar,
	ReviewTagGoodMusic,
	ReviewTagSmoothRide,
	ReviewTagFlexiblePickup,
	ReviewTagGreatConversation,
}

func (t ReviewTag) Valid() bool {
	for _, v := range ReviewTagVocabulary {
		if v == t {
			return true
		}
	}
	return false
}

// ReviewTags is stored as a JSON array in a text column.
type ReviewTags []ReviewTag

func (t ReviewTags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]ReviewTag(t))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (t *ReviewTags) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*t = ReviewTags{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported review tags type %T", value)
	}
	var tags []ReviewTag
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	*t = tags
	return nil
}

// Review is a passenger's rating of a completed trip.
type Review struct {
	gorm.Model
	TripID      uint       `json:"tripId" gorm:"not null;uniqueIndex:idx_reviews_trip_passenger"`
	Trip        *Trip      `json:"trip,omitempty" gorm:"foreignKey:TripID"`
	PassengerID uint       `json:"passengerId" gorm:"not null;uniqueIndex:idx_reviews_trip_passenger"`
	Passenger   *User      `json:"passenger,omitempty" gorm:"foreignKey:PassengerID"`
	DriverID    uint       `json:"driverId" gorm:"not null;index"`
	Rating      int        `json:"rating" gorm:"not null"`
	Text        string     `json:"text,omitempty" gorm:"type:text"`
	Tags        ReviewTags `json:"tags" gorm:"type:text"`
	LockedAt    time.Time  `json:"lockedAt" gorm:"not null"`
}

// TableName specifies the table name
func (Review) TableName() string {
	return "reviews"
}
