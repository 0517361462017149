package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/megautama/internal/config"
	"github.com/example/megautama/internal/middleware"
	"github.com/example/megautama/internal/models"
	"github.com/example/megautama/internal/services"
)

// CheckoutHandler manages the checkout session endpoints: origin branches,
// shipping rates and final order submission.
type CheckoutHandler struct {
	db       *gorm.DB
	cfg      *config.Config
	cart     *services.CartService
	rates    *services.RatesService
	checkout *services.CheckoutService
}

// NewCheckoutHandler constructs CheckoutHandler.
func NewCheckoutHandler(db *gorm.DB, cfg *config.Config) *CheckoutHandler {
	return &CheckoutHandler{
		db:       db,
		cfg:      cfg,
		cart:     services.NewCartService(db),
		rates:    services.NewRatesService(),
		checkout: services.NewCheckoutService(db),
	}
}

// Branches lists the warehouse locations a parcel can ship from.
func (h *CheckoutHandler) Branches(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "data": models.Branches})
}

type ratesRequest struct {
	BranchCode string  `json:"branch_code"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// Rates resolves the courier options for the staged checkout items. Only the
// most recent request per user produces a fresh response; requests that were
// superseded while in flight are answered with a stale marker so the client
// can discard them.
func (h *CheckoutHandler) Rates(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req ratesRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Latitude == 0 && req.Longitude == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "destination coordinates are required")
	}

	branch, ok := models.BranchByCode(req.BranchCode)
	if !ok {
		branch = models.DefaultBranch()
	}

	lines, err := h.cart.StagedItems(c.Context(), userID)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no items staged for checkout")
	}

	options, stale, err := h.rates.ResolveLatest(
		c.Context(), userID.String(), branch, req.Latitude, req.Longitude, lines,
	)
	if stale {
		return c.JSON(fiber.Map{"success": true, "stale": true, "data": []services.CourierOption{}})
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return c.JSON(fiber.Map{"success": true, "stale": true, "data": []services.CourierOption{}})
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": options})
}

// Submit places the order and returns the payment redirect.
func (h *CheckoutHandler) Submit(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req services.SubmitInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.ReturnBaseURL == "" {
		req.ReturnBaseURL = h.cfg.PublicBaseURL
	}

	result, err := h.checkout.Submit(c.Context(), userID, req)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return fiber.NewError(fiber.StatusBadRequest, verr.Message)
		}
		var uerr *services.UpstreamError
		if errors.As(err, &uerr) {
			return fiber.NewError(fiber.StatusInternalServerError, "payment gateway is unavailable, please try again")
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": result})
}
