package models

import "time"

// Reward is static reference data describing something points can buy.
type Reward struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:128;not null" json:"title"`
	Description string `gorm:"size:512" json:"description"`
	Cost        int    `gorm:"not null" json:"cost"`
}

// Redemption is an append-only ledger entry written when a reward is bought.
type Redemption struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProfileID uint      `gorm:"index;not null" json:"profile_id"`
	RewardID  uint      `gorm:"index;not null" json:"reward_id"`
	CostPaid  int       `gorm:"not null" json:"cost_paid"`
	Status    string    `gorm:"size:16;not null;default:'approved'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	Reward    Reward    `json:"reward"`
}
