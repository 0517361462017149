package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/megautama/internal/middleware"
	"github.com/example/megautama/internal/services"
)

// CartHandler manages the server-side cart endpoints.
type CartHandler struct {
	cart *services.CartService
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(db *gorm.DB) *CartHandler {
	return &CartHandler{cart: services.NewCartService(db)}
}

// Get returns the current cart with normalized weights.
func (h *CartHandler) Get(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	lines, err := h.cart.Get(c.Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": lines})
}

// Add puts a catalog product into the cart, merging with an existing line.
func (h *CartHandler) Add(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req services.AddItemInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.ProductID == "" || req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "product id and name are required")
	}

	lines, err := h.cart.Add(c.Context(), userID, req)
	if err != nil {
		return cartError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": lines})
}

type cartLineRequest struct {
	LineID   string `json:"cartId"`
	Quantity int    `json:"quantity"`
	Selected bool   `json:"selected"`
}

// Remove deletes a single line from the cart.
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	lines, err := h.cart.Remove(c.Context(), userID, c.Params("lineId"))
	if err != nil {
		return cartError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": lines})
}

// SetQuantity updates a line's quantity, never below one.
func (h *CartHandler) SetQuantity(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req cartLineRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	lines, err := h.cart.SetQuantity(c.Context(), userID, c.Params("lineId"), req.Quantity)
	if err != nil {
		return cartError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": lines})
}

// SetSelected toggles whether a line participates in checkout.
func (h *CartHandler) SetSelected(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req cartLineRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	lines, err := h.cart.SetSelected(c.Context(), userID, c.Params("lineId"), req.Selected)
	if err != nil {
		return cartError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": lines})
}

type selectAllRequest struct {
	Selected bool `json:"selected"`
}

// SelectAll toggles selection for every line at once.
func (h *CartHandler) SelectAll(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req selectAllRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	lines, err := h.cart.SelectAll(c.Context(), userID, req.Selected)
	if err != nil {
		return cartError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": lines})
}

// BeginCheckout snapshots the selected lines into the checkout stage.
func (h *CartHandler) BeginCheckout(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	staged, err := h.cart.BeginCheckout(c.Context(), userID)
	if err != nil {
		return cartError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": staged})
}

// cartError maps service errors to HTTP statuses.
func cartError(err error) error {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return fiber.NewError(fiber.StatusBadRequest, verr.Message)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "user not found")
	}
	return err
}
