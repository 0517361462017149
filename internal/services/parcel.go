package services

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/megautama/internal/models"
)

// Default parcel weights when no size token can be read from a product name.
// The cart recompute path and the catalog-browse path historically used
// different defaults; both are kept as-is rather than silently unified.
const (
	DefaultCartWeightGrams    = 1000
	DefaultCatalogWeightGrams = 2000
)

// literGrams converts a liter of paint to grams in the catalog-browse
// heuristic (paint is denser than water).
const literGrams = 1300

var (
	cartWeightPattern    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(KG|GRAM|GR|LITER|L|ML)`)
	catalogWeightPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(KG|LITER|L|PAIL)`)
	priceCleanPattern    = regexp.MustCompile(`[^0-9.-]+`)
)

// ParsePrice extracts a monetary value from a possibly currency-formatted
// input ("Rp 150.000", "150000", 150000.0). Unparseable input yields 0.
func ParsePrice(raw interface{}) float64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		return parsed
	case string:
		cleaned := priceCleanPattern.ReplaceAllString(v, "")
		if cleaned == "" {
			return 0
		}
		dec, err := decimal.NewFromString(cleaned)
		if err != nil {
			return 0
		}
		return dec.InexactFloat64()
	default:
		return 0
	}
}

// CartItemWeight derives the per-unit weight in grams for a cart line. The
// product name is the source of truth; a stored weight field is only
// consulted when the name carries no recognizable size token.
func CartItemWeight(name string, storedGrams int) int {
	if match := cartWeightPattern.FindStringSubmatch(name); match != nil {
		value, err := strconv.ParseFloat(match[1], 64)
		if err == nil {
			switch strings.ToUpper(match[2]) {
			case "KG", "LITER", "L":
				return int(math.Round(value * 1000))
			case "GRAM", "GR", "ML":
				return int(math.Round(value))
			}
		}
	}

	if storedGrams > 0 {
		return storedGrams
	}
	return DefaultCartWeightGrams
}

// CatalogWeight derives the weight for a catalog product when it is first
// added to the cart, from its name and description. Liters convert with the
// paint-density factor here, unlike the cart path.
func CatalogWeight(name, description string) int {
	text := strings.ToLower(name + " " + description)
	if match := catalogWeightPattern.FindStringSubmatch(text); match != nil {
		value, err := strconv.ParseFloat(match[1], 64)
		if err == nil {
			switch strings.ToUpper(match[2]) {
			case "LITER", "L":
				return int(math.Round(value * literGrams))
			case "KG", "PAIL":
				return int(math.Round(value * 1000))
			}
		}
	}
	return DefaultCatalogWeightGrams
}

// NormalizeCartWeights re-runs name-based weight derivation over a cart. It
// must be applied whenever lines are (re)loaded, since stored weights are not
// trusted once a display name is available.
func NormalizeCartWeights(lines models.CartLines) models.CartLines {
	for i := range lines {
		if lines[i].Name != "" {
			lines[i].WeightGrams = CartItemWeight(lines[i].Name, lines[i].WeightGrams)
		} else if lines[i].WeightGrams <= 0 {
			lines[i].WeightGrams = DefaultCartWeightGrams
		}
		if lines[i].Quantity < 1 {
			lines[i].Quantity = 1
		}
	}
	return lines
}

// ParcelWeightGrams totals the shipping weight of a set of lines.
func ParcelWeightGrams(lines models.CartLines) int {
	total := 0
	for _, line := range lines {
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		total += line.WeightGrams * qty
	}
	return total
}
