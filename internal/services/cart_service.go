package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/megautama/internal/models"
)

// CartService owns the server-side cart. The stored cart is authoritative;
// every mutation rewrites the full jsonb column in a single update so
// concurrent edits resolve to last-writer-wins instead of partial merges.
type CartService struct {
	db *gorm.DB
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

// AddItemInput is the catalog product being added to the cart. The wire
// names match the cart-line fields the storefront already sends.
type AddItemInput struct {
	ProductID   string      `json:"id"`
	Name        string      `json:"name"`
	Price       interface{} `json:"price"`
	Image       string      `json:"image"`
	Description string      `json:"description"`
}

func (s *CartService) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *CartService) saveCart(ctx context.Context, userID uuid.UUID, lines models.CartLines) error {
	return s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("cart", lines).Error
}

// Get returns the cart with weights re-derived from product names. If no
// line carries a selection mark yet, everything is selected by default.
func (s *CartService) Get(ctx context.Context, userID uuid.UUID) (models.CartLines, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines := NormalizeCartWeights(user.Cart)

	if len(lines) > 0 && len(lines.SelectedLines()) == 0 {
		for i := range lines {
			lines[i].Selected = true
		}
		if err := s.saveCart(ctx, userID, lines); err != nil {
			return nil, err
		}
	}

	return lines, nil
}

// Add appends a product or, when a line for the same product exists, bumps
// its quantity by one. The merged line's weight is re-normalized from the
// display name.
func (s *CartService) Add(ctx context.Context, userID uuid.UUID, in AddItemInput) (models.CartLines, error) {
	if in.ProductID == "" || in.Name == "" {
		return nil, NewValidationError("product id and name are required")
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines := user.Cart
	merged := false
	for i := range lines {
		if lines[i].ProductID == in.ProductID {
			lines[i].Quantity++
			lines[i].WeightGrams = CartItemWeight(lines[i].Name, lines[i].WeightGrams)
			merged = true
			break
		}
	}

	if !merged {
		lines = append(lines, models.CartLine{
			LineID:      fmt.Sprintf("%s-%d", in.ProductID, time.Now().UnixMilli()),
			ProductID:   in.ProductID,
			Name:        in.Name,
			Price:       ParsePrice(in.Price),
			Quantity:    1,
			WeightGrams: CatalogWeight(in.Name, in.Description),
			Image:       in.Image,
			Selected:    true,
		})
	}

	if err := s.saveCart(ctx, userID, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// Remove drops a line together with its selection mark.
func (s *CartService) Remove(ctx context.Context, userID uuid.UUID, lineID string) (models.CartLines, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines := make(models.CartLines, 0, len(user.Cart))
	for _, line := range user.Cart {
		if line.LineID != lineID {
			lines = append(lines, line)
		}
	}

	if err := s.saveCart(ctx, userID, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// SetQuantity updates a line's quantity, clamped to a minimum of 1.
func (s *CartService) SetQuantity(ctx context.Context, userID uuid.UUID, lineID string, quantity int) (models.CartLines, error) {
	if quantity < 1 {
		quantity = 1
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines := user.Cart
	found := false
	for i := range lines {
		if lines[i].LineID == lineID {
			lines[i].Quantity = quantity
			found = true
			break
		}
	}
	if !found {
		return nil, NewValidationError("cart line not found")
	}

	if err := s.saveCart(ctx, userID, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// SetSelected marks or unmarks a single line for checkout.
func (s *CartService) SetSelected(ctx context.Context, userID uuid.UUID, lineID string, selected bool) (models.CartLines, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines := user.Cart
	found := false
	for i := range lines {
		if lines[i].LineID == lineID {
			lines[i].Selected = selected
			found = true
			break
		}
	}
	if !found {
		return nil, NewValidationError("cart line not found")
	}

	if err := s.saveCart(ctx, userID, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// SelectAll marks every line for checkout, or none.
func (s *CartService) SelectAll(ctx context.Context, userID uuid.UUID, selected bool) (models.CartLines, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines := user.Cart
	for i := range lines {
		lines[i].Selected = selected
	}

	if err := s.saveCart(ctx, userID, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// BeginCheckout snapshots the selected lines into the checkout staging area
// and clears the live cart in the same write. This is a one-way transition:
// abandoning checkout before submission does not restore the cart.
func (s *CartService) BeginCheckout(ctx context.Context, userID uuid.UUID) (models.CartLines, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	staged := NormalizeCartWeights(user.Cart.SelectedLines())
	if len(staged) == 0 {
		return nil, NewValidationError("no items selected for checkout")
	}

	err = s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"checkout_items": staged,
			"cart":           models.CartLines{},
		}).Error
	if err != nil {
		return nil, err
	}

	return staged, nil
}

// StagedItems returns the current checkout snapshot.
func (s *CartService) StagedItems(ctx context.Context, userID uuid.UUID) (models.CartLines, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NormalizeCartWeights(user.CheckoutItems), nil
}
