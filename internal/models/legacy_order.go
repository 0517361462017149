package models

import "github.com/google/uuid"

// LegacyUserOrder is an order written by the old per-user storage scheme,
// kept as the raw document it was written with. New orders go to the
// canonical orders table; this table exists only so reconciliation can still
// find payments for orders created before the migration.
type LegacyUserOrder struct {
	BaseModel
	UserID  uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	OrderID string    `gorm:"index" json:"order_id"`
	Status  string    `json:"status"`
	Doc     []byte    `gorm:"type:jsonb" json:"doc"`
}
