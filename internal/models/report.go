package models

import "gorm.io/gorm"

type ReportReason string

const (
	ReportReasonNoShow                ReportReason = "no_show"
	ReportReasonUnsafeDriving         ReportReason = "unsafe_driving"
	ReportReasonInappropriateBehavior ReportReason = "inappropriate_behavior"
	ReportReasonPaymentIssue          ReportReason = "payment_issue"
	ReportReasonOther                 ReportReason = "other"
)

func (r ReportReason) Valid() bool {
	switch r {
	case ReportReasonNoShow, ReportReasonUnsafeDriving, ReportReasonInappropriateBehavior,
		ReportReasonPaymentIssue, ReportReasonOther:
		return true
	}
	return false
}

type ReportStatus string

const (
	ReportStatusOpen      ReportStatus = "open"
	ReportStatusReviewed  ReportStatus = "reviewed"
	ReportStatusDismissed ReportStatus = "dismissed"
)

// Report flags a trip or a user for moderation.
type Report struct {
	gorm.Model
	ReporterID     uint         `json:"reporterId" gorm:"not null;index"`
	TripID         *uint        `json:"tripId,omitempty" gorm:"index"`
	ReportedUserID *uint        `json:"reportedUserId,omitempty" gorm:"index"`
	Reason         ReportReason `json:"reason" gorm:"not null"`
	Description    string       `json:"description,omitempty" gorm:"type:text"`
	Status         ReportStatus `json:"status" gorm:"not null;default:'open'"`
}

// TableName specifies the table name
func (Report) TableName() string {
	return "reports"
}
