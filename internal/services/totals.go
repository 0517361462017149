package services

import (
	"math"

	"github.com/example/megautama/internal/models"
)

// Points accrue at 1000 points per full 100k rupiah of product subtotal.
// Shipping and redemptions never affect earning.
const (
	earnStepAmount = 100_000
	earnStepPoints = 1000
)

// Totals is the checkout price breakdown for a set of lines.
type Totals struct {
	Subtotal       float64 `json:"subtotal"`
	ShippingCost   float64 `json:"shipping_cost"`
	PointsRedeemed int64   `json:"points_redeemed"`
	TotalPayable   float64 `json:"total_payable"`
	PointsEarned   int64   `json:"points_earned"`
}

// Subtotal sums price x quantity over the given lines.
func Subtotal(lines models.CartLines) float64 {
	var subtotal float64
	for _, line := range lines {
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		subtotal += line.Price * float64(qty)
	}
	return subtotal
}

// EarnedPoints computes the loyalty points earned from a product subtotal.
// Submission and reconciliation both go through this function so the
// provisional estimate and the authoritative credit cannot drift apart.
func EarnedPoints(subtotal float64) int64 {
	if subtotal <= 0 {
		return 0
	}
	return int64(math.Floor(subtotal/earnStepAmount)) * earnStepPoints
}

// ComputeTotals combines subtotal, shipping and an optional points redemption
// into the final payable amount. Redemption is clamped so it never exceeds
// the available balance nor the subtotal.
func ComputeTotals(lines models.CartLines, shippingCost float64, redeemPoints bool, availablePoints int64) Totals {
	subtotal := Subtotal(lines)

	var redeemed int64
	if redeemPoints {
		redeemed = availablePoints
		if float64(redeemed) > subtotal {
			redeemed = int64(math.Floor(subtotal))
		}
		if redeemed < 0 {
			redeemed = 0
		}
	}

	payable := subtotal - float64(redeemed) + shippingCost
	if payable < 0 {
		payable = 0
	}

	return Totals{
		Subtotal:       subtotal,
		ShippingCost:   shippingCost,
		PointsRedeemed: redeemed,
		TotalPayable:   payable,
		PointsEarned:   EarnedPoints(subtotal),
	}
}
