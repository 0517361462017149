package handlers

import (
	"context"
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/megautama/internal/cache"
	"github.com/example/megautama/internal/services"
)

// WebhookHandler receives payment gateway callbacks.
type WebhookHandler struct {
	reconcile *services.ReconcileService
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(db *gorm.DB, dedupe *cache.EventDedupe) *WebhookHandler {
	return &WebhookHandler{reconcile: services.NewReconcileService(db, dedupe)}
}

// xenditCallback covers both the flat invoice callback shape and the
// nested payment event shape Xendit sends depending on the product.
type xenditCallback struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	Data       struct {
		ID          string `json:"id"`
		ReferenceID string `json:"reference_id"`
		Status      string `json:"status"`
	} `json:"data"`
}

// extractPaymentEvent pulls the order reference and status out of a raw
// callback body, preferring the flat invoice fields.
func extractPaymentEvent(body []byte) (services.PaymentEvent, error) {
	var cb xenditCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return services.PaymentEvent{}, err
	}

	ev := services.PaymentEvent{
		EventID: cb.ID,
		OrderID: cb.ExternalID,
		Status:  cb.Status,
	}
	if ev.OrderID == "" {
		ev.OrderID = cb.Data.ReferenceID
	}
	if ev.Status == "" {
		ev.Status = cb.Data.Status
	}
	if ev.EventID == "" {
		ev.EventID = cb.Data.ID
	}
	return ev, nil
}

// XenditCallback processes an invoice callback. The response is always
// HTTP 200: a non-2xx answer makes the gateway retry indefinitely, and
// every failure here is either a malformed body we can never process or a
// local problem the retry queue cannot fix.
func (h *WebhookHandler) XenditCallback(c *fiber.Ctx) error {
	ev, err := extractPaymentEvent(c.Body())
	if err != nil {
		log.Printf("[Webhook] unreadable callback body: %v", err)
		return c.JSON(fiber.Map{"success": false, "message": "invalid payload"})
	}

	// The gateway's delivery timeout is shorter than a worst-case legacy
	// scan, so reconciliation runs on a detached context.
	outcome, err := h.reconcile.OnPaymentEvent(context.Background(), ev)
	if err != nil {
		log.Printf("[Webhook] reconcile %s failed: %v", ev.OrderID, err)
		return c.JSON(fiber.Map{"success": false, "message": "reconciliation failed"})
	}

	log.Printf("[Webhook] order %s status %s -> %s", ev.OrderID, ev.Status, outcome)
	return c.JSON(fiber.Map{"success": true, "outcome": outcome})
}
