package models

import "time"

// Profile is the application-side user row, bootstrapped lazily on first
// authenticated visit. AuthID references the credential (User.ID); the
// unique index guarantees at most one profile per credential.
type Profile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AuthID      uint      `gorm:"uniqueIndex;not null" json:"auth_id"`
	DisplayName string    `gorm:"size:128" json:"display_name"`
	Role        string    `gorm:"size:16;not null;default:'hero'" json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// Stats keeps the running point total and streak counters for one profile.
// Every point-affecting operation mutates this row.
type Stats struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	ProfileID     uint      `gorm:"uniqueIndex;not null" json:"profile_id"`
	TotalPoints   int       `gorm:"not null;default:0" json:"total_points"`
	CurrentStreak int       `gorm:"not null;default:0" json:"current_streak"`
	BestStreak    int       `gorm:"not null;default:0" json:"best_streak"`
	UpdatedAt     time.Time `json:"updated_at"`
}
