package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"
)

var ratesHTTPClient = &http.Client{Timeout: 15 * time.Second}

const (
	defaultBiteshipBaseURL = "https://api.biteship.com"
	rateCouriers           = "grab,gojek,jne,sicepat,anteraja"
)

// BiteshipBaseURL exposes the configured aggregator base URL.
func BiteshipBaseURL() string {
	base := strings.TrimSpace(os.Getenv("BITESHIP_URL"))
	if base == "" {
		return defaultBiteshipBaseURL
	}
	return strings.TrimRight(base, "/")
}

// RateItem describes one parcel line in a rate request.
type RateItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Value       int    `json:"value"`
	Weight      int    `json:"weight"`
	Quantity    int    `json:"quantity"`
}

type rateRequest struct {
	OriginLatitude       float64    `json:"origin_latitude"`
	OriginLongitude      float64    `json:"origin_longitude"`
	DestinationLatitude  float64    `json:"destination_latitude"`
	DestinationLongitude float64    `json:"destination_longitude"`
	Couriers             string     `json:"couriers"`
	Items                []RateItem `json:"items"`
}

// RatePricing is one courier quote returned by the aggregator.
type RatePricing struct {
	CourierName        string  `json:"courier_name"`
	CourierCode        string  `json:"courier_code"`
	CourierServiceName string  `json:"courier_service_name"`
	Price              float64 `json:"price"`
	Duration           string  `json:"duration"`
}

type rateResponse struct {
	Pricing []RatePricing `json:"pricing"`
}

// NewRateItem builds a sanitized aggregator item from raw line data: name
// capped at 30 chars, value and weight rounded, quantity at least 1.
func NewRateItem(name string, value float64, weightGrams, quantity int) RateItem {
	if len(name) > 30 {
		name = name[:30]
	}
	if name == "" {
		name = "Produk"
	}
	if weightGrams <= 0 {
		weightGrams = DefaultCartWeightGrams
	}
	if quantity < 1 {
		quantity = 1
	}
	return RateItem{
		Name:        name,
		Description: name,
		Value:       int(math.Round(value)),
		Weight:      weightGrams,
		Quantity:    quantity,
	}
}

// GetCourierRates asks the aggregator for door-to-door quotes between two
// coordinates for the given parcel.
func GetCourierRates(ctx context.Context, originLat, originLon, destLat, destLon float64, items []RateItem) ([]RatePricing, error) {
	token := strings.TrimSpace(os.Getenv("BITESHIP_API_KEY"))
	if token == "" {
		return nil, errors.New("BITESHIP_API_KEY is not configured")
	}

	payload := rateRequest{
		OriginLatitude:       originLat,
		OriginLongitude:      originLon,
		DestinationLatitude:  destLat,
		DestinationLongitude: destLon,
		Couriers:             rateCouriers,
		Items:                items,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal rate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, BiteshipBaseURL()+"/v1/rates/couriers", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rate request: %w", err)
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ratesHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute rate request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rate response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rate request failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var parsed rateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal rate response: %w", err)
	}

	return parsed.Pricing, nil
}
