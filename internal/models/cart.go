package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// CartLine is one product line in a user's cart. Lines are keyed by LineID,
// which stays stable across quantity edits so selection marks survive syncs.
type CartLine struct {
	LineID      string  `json:"cartId"`
	ProductID   string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	WeightGrams int     `json:"weight"`
	Image       string  `json:"image"`
	Selected    bool    `json:"selected"`
}

// CartLines is stored as a single jsonb column on users. Every mutation
// rewrites the whole array; partial merges of individual lines are not
// supported, so the last full write always wins.
type CartLines []CartLine

// Value implements driver.Valuer for jsonb storage.
func (c CartLines) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner for jsonb storage.
func (c *CartLines) Scan(value interface{}) error {
	if value == nil {
		*c = CartLines{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported cart column type")
	}

	if len(data) == 0 {
		*c = CartLines{}
		return nil
	}
	return json.Unmarshal(data, c)
}

// TotalQuantity is the badge count shown to the user.
func (c CartLines) TotalQuantity() int {
	total := 0
	for _, line := range c {
		total += line.Quantity
	}
	return total
}

// SelectedLines returns the subset of lines marked for checkout.
func (c CartLines) SelectedLines() CartLines {
	selected := make(CartLines, 0, len(c))
	for _, line := range c {
		if line.Selected {
			selected = append(selected, line)
		}
	}
	return selected
}
