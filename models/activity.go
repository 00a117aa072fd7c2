package models

import "time"

// Activity log status transitions pending -> approved exactly once.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

// ActivityType is static reference data describing a loggable activity.
// Negative types subtract their base points on approval.
type ActivityType struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"size:64;not null" json:"name"`
	BasePoints int    `gorm:"not null;default:0" json:"base_points"`
	Negative   bool   `gorm:"not null;default:false" json:"negative"`
}

// ActivityLog is a user-submitted activity awaiting GM approval.
type ActivityLog struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	ProfileID      uint         `gorm:"index;not null" json:"profile_id"`
	ActivityTypeID uint         `gorm:"index;not null" json:"activity_type_id"`
	Note           string       `gorm:"size:512" json:"note"`
	Status         string       `gorm:"size:16;not null;default:'pending';index" json:"status"`
	CreatedAt      time.Time    `gorm:"index" json:"created_at"`
	ActivityType   ActivityType `json:"activity_type"`
}

// PointsDelta returns the signed point value this log is worth on approval.
func (t ActivityType) PointsDelta() int {
	base := t.BasePoints
	if base < 0 {
		base = -base
	}
	if t.Negative {
		return -base
	}
	return base
}
