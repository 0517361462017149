package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/megautama/internal/middleware"
	"github.com/example/megautama/internal/models"
	"github.com/example/megautama/internal/utils"
)

// Daily check-in rewards by day of the week-long streak. Day 7 pays out the
// big bonus, then the cycle restarts.
var weeklyCheckInRewards = [7]int64{10, 10, 15, 20, 25, 30, 100}

// nextLevelPoints is the balance needed for the next membership level.
const nextLevelPoints = 50_000

// ProfileHandler manages the member profile and loyalty endpoints.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// Get returns the member profile with loyalty progress.
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":                 user.ID,
			"first_name":         user.FirstName,
			"last_name":          user.LastName,
			"email":              user.Email,
			"phone":              user.Phone,
			"points":             user.Points,
			"next_level_points":  nextLevelPoints,
			"cart_badge":         user.Cart.TotalQuantity(),
			"check_in_streak":    user.CheckInStreak,
			"last_check_in_date": user.LastCheckInDate,
		},
	})
}

// CheckIn claims today's daily reward. One claim per calendar day; repeat
// calls are a no-op rather than an error so an impatient double tap stays
// harmless.
func (h *ProfileHandler) CheckIn(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	today := time.Now().Format("2006-01-02")

	var reward int64
	var streak int
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return err
		}

		if user.LastCheckInDate == today {
			reward = 0
			streak = user.CheckInStreak
			return nil
		}

		reward = weeklyCheckInRewards[user.CheckInStreak%len(weeklyCheckInRewards)]
		streak = user.CheckInStreak + 1

		res := tx.Model(&models.User{}).
			Where("id = ? AND last_check_in_date <> ?", user.ID, today).
			Updates(map[string]interface{}{
				"points":             gorm.Expr("points + ?", reward),
				"last_check_in_date": today,
				"check_in_streak":    streak,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// A concurrent request claimed today between our read and this
			// write; report nothing credited.
			reward = 0
		}
		return nil
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"reward_points":   reward,
			"check_in_streak": streak,
			"already_claimed": reward == 0,
		},
	})
}

type redeemRewardRequest struct {
	RewardName string `json:"reward_name"`
	Cost       int64  `json:"cost"`
}

// RedeemReward exchanges points for a catalog reward. The guarded decrement
// rejects the claim when the balance no longer covers the cost.
func (h *ProfileHandler) RedeemReward(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req redeemRewardRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.RewardName) == "" || req.Cost <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "reward name and a positive cost are required")
	}

	var redemption models.RewardRedemption
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return err
		}

		res := tx.Model(&models.User{}).
			Where("id = ? AND points >= ?", userID, req.Cost).
			Update("points", gorm.Expr("points - ?", req.Cost))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "not enough points")
		}

		redemption = models.RewardRedemption{
			UserID:     userID,
			UserName:   strings.TrimSpace(user.FirstName + " " + user.LastName),
			RewardName: req.RewardName,
			Cost:       req.Cost,
			Status:     "PENDING",
			ClaimedAt:  time.Now(),
		}
		return tx.Create(&redemption).Error
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": redemption})
}

// Redemptions lists the user's claimed rewards.
func (h *ProfileHandler) Redemptions(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pagination := utils.ParsePagination(c)

	var redemptions []models.RewardRedemption
	err := h.db.Where("user_id = ?", userID).
		Order("claimed_at DESC").
		Limit(pagination.Limit).
		Offset(pagination.Offset).
		Find(&redemptions).Error
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": redemptions})
}
