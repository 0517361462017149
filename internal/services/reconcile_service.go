package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/megautama/internal/cache"
	"github.com/example/megautama/internal/models"
)

// ReconcileOutcome reports what a payment event did to local state.
type ReconcileOutcome string

const (
	// OutcomeIgnored means the event status was not a success status.
	OutcomeIgnored ReconcileOutcome = "ignored"
	// OutcomeNotFound means no order matched the event reference.
	OutcomeNotFound ReconcileOutcome = "not_found"
	// OutcomeAlreadyPaid means the order was settled by an earlier delivery.
	OutcomeAlreadyPaid ReconcileOutcome = "already_paid"
	// OutcomeCompleted means this delivery marked the order paid and
	// credited the earned points.
	OutcomeCompleted ReconcileOutcome = "completed"
)

// IsPaymentSuccess reports whether a gateway status counts as a completed
// payment. Gateways disagree on the terminal wording, so all known
// variants are accepted.
func IsPaymentSuccess(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "PAID", "SETTLED", "COMPLETED":
		return true
	}
	return false
}

// PaymentEvent is the normalized form of a gateway callback.
type PaymentEvent struct {
	EventID string
	OrderID string
	Status  string
}

// ReconcileService applies payment gateway events to orders.
type ReconcileService struct {
	db     *gorm.DB
	dedupe *cache.EventDedupe
}

func NewReconcileService(db *gorm.DB, dedupe *cache.EventDedupe) *ReconcileService {
	return &ReconcileService{db: db, dedupe: dedupe}
}

// OnPaymentEvent processes one gateway delivery. Deliveries are at least
// once, so the settle path must be idempotent regardless of the dedupe
// cache, which only short-circuits the common duplicate.
func (s *ReconcileService) OnPaymentEvent(ctx context.Context, ev PaymentEvent) (ReconcileOutcome, error) {
	if !IsPaymentSuccess(ev.Status) {
		return OutcomeIgnored, nil
	}
	if ev.OrderID == "" {
		return OutcomeIgnored, nil
	}
	if s.dedupe != nil && ev.EventID != "" {
		if !s.dedupe.FirstDelivery(ctx, ev.EventID) {
			return OutcomeAlreadyPaid, nil
		}
	}

	outcome, err := s.settleCanonical(ctx, ev.OrderID)
	if err == nil && outcome == OutcomeNotFound {
		outcome, err = s.settleLegacy(ctx, ev.OrderID)
	}
	if err != nil {
		// The settle did not land; drop the delivery marker so a redelivery
		// of this event reaches the database gate again instead of being
		// answered from the cache.
		if s.dedupe != nil && ev.EventID != "" {
			s.dedupe.Release(ctx, ev.EventID)
		}
		return outcome, err
	}
	return outcome, nil
}

// settleCanonical settles an order in the orders table. The row lock plus
// the status condition on the update make concurrent duplicate deliveries
// safe: exactly one of them flips the status and credits points.
func (s *ReconcileService) settleCanonical(ctx context.Context, orderID string) (ReconcileOutcome, error) {
	outcome := OutcomeNotFound

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items").
			First(&order, "order_id = ?", orderID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if order.Status != models.StatusAwaitingPayment {
			outcome = OutcomeAlreadyPaid
			return nil
		}

		// Earned points are recomputed from the stored items rather than
		// trusted from the order row.
		var subtotal float64
		for _, item := range order.Items {
			subtotal += item.UnitPrice * float64(item.Quantity)
		}
		earned := EarnedPoints(subtotal)

		res := tx.Model(&models.Order{}).
			Where("order_id = ? AND status = ?", orderID, models.StatusAwaitingPayment).
			Updates(map[string]interface{}{
				"status":        models.StatusPaid,
				"points_earned": earned,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			outcome = OutcomeAlreadyPaid
			return nil
		}

		if earned > 0 {
			if err := tx.Model(&models.User{}).
				Where("id = ?", order.UserID).
				Update("points", gorm.Expr("points + ?", earned)).Error; err != nil {
				return err
			}
		}

		outcome = OutcomeCompleted
		return nil
	})
	return outcome, err
}

// legacyOrderDoc covers the field spellings found in documents imported
// from the old storefront.
type legacyOrderDoc struct {
	Total       *float64 `json:"total"`
	TotalBill   *float64 `json:"totalBill"`
	TotalAmount *float64 `json:"total_amount"`
	Items       []struct {
		Price    float64 `json:"price"`
		Quantity int     `json:"quantity"`
	} `json:"items"`
}

func (d legacyOrderDoc) subtotal() float64 {
	if len(d.Items) > 0 {
		var sum float64
		for _, it := range d.Items {
			sum += it.Price * float64(it.Quantity)
		}
		return sum
	}
	switch {
	case d.Total != nil:
		return *d.Total
	case d.TotalBill != nil:
		return *d.TotalBill
	case d.TotalAmount != nil:
		return *d.TotalAmount
	}
	return 0
}

// settleLegacy scans per-user legacy order rows for the reference. This is
// a linear scan over users and only exists for orders imported from the
// old storefront; new orders always land in the orders table.
func (s *ReconcileService) settleLegacy(ctx context.Context, orderID string) (ReconcileOutcome, error) {
	var rows []models.LegacyUserOrder
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Find(&rows).Error
	if err != nil {
		return OutcomeNotFound, err
	}
	if len(rows) == 0 {
		return OutcomeNotFound, nil
	}

	outcome := OutcomeAlreadyPaid
	for _, row := range rows {
		if row.Status != models.StatusAwaitingPayment {
			continue
		}

		res := s.db.WithContext(ctx).Model(&models.LegacyUserOrder{}).
			Where("id = ? AND status = ?", row.ID, models.StatusAwaitingPayment).
			Update("status", models.StatusPaid)
		if res.Error != nil {
			return outcome, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}

		var doc legacyOrderDoc
		if err := json.Unmarshal(row.Doc, &doc); err != nil {
			log.Printf("[Reconcile] legacy order %s has unreadable document: %v", orderID, err)
			outcome = OutcomeCompleted
			continue
		}

		earned := EarnedPoints(doc.subtotal())
		if earned > 0 {
			if err := s.db.WithContext(ctx).Model(&models.User{}).
				Where("id = ?", row.UserID).
				Update("points", gorm.Expr("points + ?", earned)).Error; err != nil {
				return outcome, err
			}
		}
		outcome = OutcomeCompleted
	}
	return outcome, nil
}
