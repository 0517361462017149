package services

import (
	"context"
	"errors"
	"log"
	"math"

	"github.com/example/megautama/internal/models"
)

// Express tier gating: the internal courier only serves destinations within
// 10 km of the origin branch and parcels up to 26 kg.
const (
	expressMaxDistanceKm  = 10.0
	expressMaxWeightGrams = 26_000
	expressFallbackPrice  = 15_000
)

// CourierOption is one selectable shipping method. Options are recomputed on
// every (branch, destination, parcel) change and never persisted; the chosen
// option is carried into the order by the caller.
type CourierOption struct {
	ProviderCode string  `json:"courier_code"`
	CourierName  string  `json:"courier_name"`
	ServiceName  string  `json:"courier_service_name"`
	Price        float64 `json:"price"`
	ETA          string  `json:"duration"`
	Internal     bool    `json:"is_internal"`
}

// RatesFetcher obtains aggregator quotes; swapped out in tests.
type RatesFetcher func(ctx context.Context, originLat, originLon, destLat, destLon float64, items []RateItem) ([]RatePricing, error)

// RatesService resolves the courier options for a checkout session.
type RatesService struct {
	fetch  RatesFetcher
	runner *LatestRunner
}

func NewRatesService() *RatesService {
	return &RatesService{
		fetch:  GetCourierRates,
		runner: NewLatestRunner(),
	}
}

// SelfPickupOption is the zero-cost option that is always offered.
func SelfPickupOption() CourierOption {
	return CourierOption{
		ProviderCode: "self",
		CourierName:  "AMBIL SENDIRI",
		ServiceName:  "PICKUP DI TOKO",
		Price:        0,
		ETA:          "SAAT TOKO BUKA",
		Internal:     true,
	}
}

func expressOption(price float64) CourierOption {
	return CourierOption{
		ProviderCode: "mu",
		CourierName:  "MU EXPRESS",
		ServiceName:  "PROMO 50%",
		Price:        price,
		ETA:          "1-3 JAM",
		Internal:     true,
	}
}

func expressFallbackOption() CourierOption {
	return CourierOption{
		ProviderCode: "mu",
		CourierName:  "MU EXPRESS",
		ServiceName:  "INSTANT",
		Price:        expressFallbackPrice,
		ETA:          "1-2 JAM",
		Internal:     true,
	}
}

// Resolve computes the courier options for shipping the given lines from a
// branch to a destination. Aggregator failures degrade to the internal
// options instead of blocking checkout; only cancellation is surfaced as an
// error so superseded lookups can be discarded.
func (s *RatesService) Resolve(ctx context.Context, branch models.Branch, destLat, destLon float64, lines models.CartLines) ([]CourierOption, error) {
	lines = NormalizeCartWeights(lines)

	options := []CourierOption{SelfPickupOption()}

	distanceKm := HaversineKm(branch.Latitude, branch.Longitude, destLat, destLon)
	weightGrams := ParcelWeightGrams(lines)
	expressEligible := distanceKm <= expressMaxDistanceKm && weightGrams <= expressMaxWeightGrams

	items := make([]RateItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, NewRateItem(line.Name, line.Price, line.WeightGrams, line.Quantity))
	}

	pricing, err := s.fetch(ctx, branch.Latitude, branch.Longitude, destLat, destLon, items)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		log.Printf("[Rates] aggregator lookup failed, degrading: %v", err)
		if expressEligible {
			options = append(options, expressFallbackOption())
		}
		return options, nil
	}

	if expressEligible && len(pricing) > 0 {
		cheapest := pricing[0].Price
		for _, quote := range pricing[1:] {
			if quote.Price < cheapest {
				cheapest = quote.Price
			}
		}
		options = append(options, expressOption(math.Round(cheapest*0.5)))
	}

	for _, quote := range pricing {
		options = append(options, CourierOption{
			ProviderCode: quote.CourierCode,
			CourierName:  quote.CourierName,
			ServiceName:  quote.CourierServiceName,
			Price:        quote.Price,
			ETA:          quote.Duration,
			Internal:     false,
		})
	}

	return options, nil
}

// ResolveLatest runs Resolve with last-request-wins semantics per session:
// a newer call for the same key cancels the in-flight one, and a superseded
// call reports stale=true with no options so its result is never applied.
func (s *RatesService) ResolveLatest(ctx context.Context, sessionKey string, branch models.Branch, destLat, destLon float64, lines models.CartLines) (options []CourierOption, stale bool, err error) {
	reqCtx, isLatest := s.runner.Begin(ctx, sessionKey)

	options, err = s.Resolve(reqCtx, branch, destLat, destLon, lines)
	if !isLatest() {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return options, false, nil
}
