package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/megautama/internal/middleware"
	"github.com/example/megautama/internal/models"
	"github.com/example/megautama/internal/utils"
)

// OrderHandler serves the authenticated user's order history.
type OrderHandler struct {
	db *gorm.DB
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB) *OrderHandler {
	return &OrderHandler{db: db}
}

// List returns the user's orders, newest first.
func (h *OrderHandler) List(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pagination := utils.ParsePagination(c)

	var total int64
	if err := h.db.Model(&models.Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	err := h.db.Preload("Items").
		Where("user_id = ?", userID).
		Order("placed_at DESC").
		Limit(pagination.Limit).
		Offset(pagination.Offset).
		Find(&orders).Error
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"meta": fiber.Map{
			"page":  pagination.Page,
			"limit": pagination.Limit,
			"total": total,
		},
	})
}

// Get returns one order by its external order id.
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var order models.Order
	err := h.db.Preload("Items").
		First(&order, "order_id = ? AND user_id = ?", c.Params("orderId"), userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// Delete removes an order from the history. Paid orders are the user's
// purchase record and cannot be deleted.
func (h *OrderHandler) Delete(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var order models.Order
	err := h.db.First(&order, "order_id = ? AND user_id = ?", c.Params("orderId"), userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	if order.Status == models.StatusPaid {
		return fiber.NewError(fiber.StatusForbidden, "paid orders cannot be deleted")
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_ref = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}
