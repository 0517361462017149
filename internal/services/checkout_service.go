package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/megautama/internal/models"
)

// InvoiceCreator requests an external invoice; swapped out in tests.
type InvoiceCreator func(ctx context.Context, in InvoiceRequest) (*Invoice, error)

// CheckoutService turns a staged checkout into a pending order with a
// payment invoice attached.
type CheckoutService struct {
	db            *gorm.DB
	createInvoice InvoiceCreator
}

func NewCheckoutService(db *gorm.DB) *CheckoutService {
	return &CheckoutService{db: db, createInvoice: CreateInvoice}
}

// ShippingInput is the destination entered during the checkout session.
type ShippingInput struct {
	Address        string  `json:"address"`
	Landmark       string  `json:"landmark"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	RecipientName  string  `json:"recipient_name"`
	RecipientPhone string  `json:"recipient_phone"`
}

// SubmitInput carries everything the user chose during checkout.
type SubmitInput struct {
	BranchCode   string        `json:"branch_code"`
	Shipping     ShippingInput `json:"shipping"`
	Courier      CourierOption `json:"courier"`
	RedeemPoints bool          `json:"redeem_points"`
	// ReturnBaseURL is the storefront origin for payment redirects.
	ReturnBaseURL string `json:"return_base_url"`
}

// SubmitResult is handed back to the caller for the payment redirect.
type SubmitResult struct {
	OrderID    string `json:"order_id"`
	InvoiceURL string `json:"invoice_url"`
	Totals     Totals `json:"totals"`
}

// NewOrderID generates the externally visible order id used as the
// reconciliation idempotency key. Each submission attempt gets a fresh one.
func NewOrderID() string {
	return fmt.Sprintf("ORD-%d", time.Now().UnixMilli())
}

// Submit validates the checkout, requests an invoice, writes the pending
// order and, in one transaction, clears the cart and consumes any redeemed
// points. The invoice is requested before any local write so a gateway
// failure leaves no order behind; conversely, once the invoice exists the
// submission is no longer cancellable.
func (s *CheckoutService) Submit(ctx context.Context, userID uuid.UUID, in SubmitInput) (*SubmitResult, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}

	lines := NormalizeCartWeights(user.CheckoutItems)
	if len(lines) == 0 {
		return nil, NewValidationError("no items staged for checkout")
	}
	if strings.TrimSpace(in.Shipping.RecipientName) == "" || strings.TrimSpace(in.Shipping.RecipientPhone) == "" {
		return nil, NewValidationError("recipient name and phone are required")
	}
	if in.Courier.CourierName == "" {
		return nil, NewValidationError("no courier selected")
	}

	branch, ok := models.BranchByCode(in.BranchCode)
	if !ok {
		return nil, NewValidationError("unknown origin branch %q", in.BranchCode)
	}

	totals := ComputeTotals(lines, in.Courier.Price, in.RedeemPoints, user.Points)

	orderID := NewOrderID()
	invoice, err := s.createInvoice(ctx, InvoiceRequest{
		OrderID:       orderID,
		Amount:        totals.TotalPayable,
		PayerEmail:    user.Email,
		ReturnBaseURL: in.ReturnBaseURL,
	})
	if err != nil {
		return nil, &UpstreamError{Op: "create invoice", Err: err}
	}

	address := in.Shipping.Address
	if in.Courier.ProviderCode == "self" {
		address = "[AMBIL DI TOKO] " + branch.Address
	}

	order := models.Order{
		OrderID:          orderID,
		UserID:           user.ID,
		UserEmail:        user.Email,
		RecipientName:    strings.ToUpper(in.Shipping.RecipientName),
		RecipientPhone:   in.Shipping.RecipientPhone,
		OriginBranch:     branch.Name,
		BranchAddress:    branch.Address,
		ShippingAddress:  address,
		LandmarkNote:     in.Shipping.Landmark,
		DestLatitude:     in.Shipping.Latitude,
		DestLongitude:    in.Shipping.Longitude,
		CourierCode:      in.Courier.ProviderCode,
		CourierName:      in.Courier.CourierName,
		CourierService:   in.Courier.ServiceName,
		CourierPrice:     in.Courier.Price,
		CourierETA:       in.Courier.ETA,
		CourierInternal:  in.Courier.Internal,
		TotalWeightGrams: ParcelWeightGrams(lines),
		Subtotal:         totals.Subtotal,
		ShippingCost:     totals.ShippingCost,
		PointsRedeemed:   totals.PointsRedeemed,
		PointsEarned:     totals.PointsEarned,
		TotalAmount:      totals.TotalPayable,
		Status:           models.StatusAwaitingPayment,
		InvoiceURL:       invoice.InvoiceURL,
		PlacedAt:         time.Now(),
	}

	for _, line := range lines {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   line.ProductID,
			Name:        line.Name,
			UnitPrice:   line.Price,
			Quantity:    line.Quantity,
			WeightGrams: line.WeightGrams,
			Image:       line.Image,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", user.ID).
			Updates(map[string]interface{}{
				"cart":           models.CartLines{},
				"checkout_items": models.CartLines{},
			}).Error; err != nil {
			return err
		}

		// Redeemed points are consumed now, not at reconciliation. The
		// guarded update keeps the balance from ever going negative even if
		// another device spent points since we loaded the user.
		if totals.PointsRedeemed > 0 {
			res := tx.Model(&models.User{}).
				Where("id = ? AND points >= ?", user.ID, totals.PointsRedeemed).
				Update("points", gorm.Expr("points - ?", totals.PointsRedeemed))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return NewValidationError("points balance is no longer sufficient")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &SubmitResult{
		OrderID:    orderID,
		InvoiceURL: invoice.InvoiceURL,
		Totals:     totals,
	}, nil
}
