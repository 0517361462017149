package models

import (
	"time"

	"github.com/google/uuid"
)

// Order status values. An order is created in StatusAwaitingPayment and moves
// to StatusPaid exactly once, via webhook reconciliation.
const (
	StatusAwaitingPayment = "AWAITING_PAYMENT"
	StatusPaid            = "PAID"
	StatusCancelled       = "CANCELLED"
)

type Order struct {
	BaseModel
	// OrderID is the externally visible id handed to the payment gateway and
	// used as the reconciliation idempotency key.
	OrderID string    `gorm:"uniqueIndex" json:"order_id"`
	UserID  uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User    *User     `json:"user,omitempty"`

	UserEmail      string `json:"user_email"`
	RecipientName  string `json:"recipient_name"`
	RecipientPhone string `json:"recipient_phone"`

	OriginBranch  string `json:"origin_branch"`
	BranchAddress string `json:"branch_address"`

	ShippingAddress string  `json:"shipping_address"`
	LandmarkNote    string  `json:"landmark_note"`
	DestLatitude    float64 `json:"dest_latitude"`
	DestLongitude   float64 `json:"dest_longitude"`

	CourierCode     string  `json:"courier_code"`
	CourierName     string  `json:"courier_name"`
	CourierService  string  `json:"courier_service"`
	CourierPrice    float64 `json:"courier_price"`
	CourierETA      string  `json:"courier_eta"`
	CourierInternal bool    `json:"courier_internal"`

	TotalWeightGrams int     `json:"total_weight_grams"`
	Subtotal         float64 `json:"subtotal"`
	ShippingCost     float64 `json:"shipping_cost"`
	PointsRedeemed   int64   `json:"points_redeemed"`
	PointsEarned     int64   `json:"points_earned"`
	TotalAmount      float64 `json:"total_amount"`

	Status     string    `gorm:"index" json:"status"`
	InvoiceURL string    `json:"invoice_url"`
	PlacedAt   time.Time `json:"placed_at"`

	Items []OrderItem `gorm:"foreignKey:OrderRef" json:"items,omitempty"`
}

type OrderItem struct {
	BaseModel
	OrderRef    uuid.UUID `gorm:"type:uuid;index" json:"order_ref"`
	ProductID   string    `json:"product_id"`
	Name        string    `json:"name"`
	UnitPrice   float64   `json:"unit_price"`
	Quantity    int       `json:"quantity"`
	WeightGrams int       `json:"weight_grams"`
	Image       string    `json:"image"`
}
