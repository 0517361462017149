package models

import (
	"time"

	"github.com/google/uuid"
)

// RewardRedemption records a catalog reward claimed with loyalty points.
// The points cost is debited at creation; fulfilment happens offline and the
// row stays PENDING until an admin marks it done.
type RewardRedemption struct {
	BaseModel
	UserID     uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	UserName   string    `json:"user_name"`
	RewardName string    `json:"reward_name"`
	Cost       int64     `json:"cost"`
	Status     string    `json:"status"`
	ClaimedAt  time.Time `json:"claimed_at"`
}
