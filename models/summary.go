package models

import "time"

// DailySummary records the settlement of one profile for one calendar day.
// The unique index makes the settlement idempotent at the storage layer:
// a duplicate insert means the day was already closed.
type DailySummary struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProfileID    uint      `gorm:"not null;uniqueIndex:idx_daily_profile_day" json:"profile_id"`
	Day          time.Time `gorm:"not null;uniqueIndex:idx_daily_profile_day" json:"day"`
	PointsEarned int       `gorm:"not null;default:0" json:"points_earned"`
	AvgBaseline  float64   `gorm:"not null;default:0" json:"avg_baseline"`
	BonusApplied int       `gorm:"not null;default:0" json:"bonus_applied"`
	CreatedAt    time.Time `json:"created_at"`
}

// WeeklySummary records the settlement of one profile for one week.
type WeeklySummary struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ProfileID     uint      `gorm:"not null;uniqueIndex:idx_weekly_profile_week" json:"profile_id"`
	WeekStart     time.Time `gorm:"not null;uniqueIndex:idx_weekly_profile_week" json:"week_start"`
	WorkoutsCount int       `gorm:"not null;default:0" json:"workouts_count"`
	BonusApplied  int       `gorm:"not null;default:0" json:"bonus_applied"`
	CreatedAt     time.Time `json:"created_at"`
}
