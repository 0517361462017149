package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/example/megautama/internal/models"
)

// nearbyDest is roughly 5 km east of the default branch.
func nearbyDest(branch models.Branch) (float64, float64) {
	return branch.Latitude, branch.Longitude + 0.045
}

// farDest is well beyond the express radius.
func farDest(branch models.Branch) (float64, float64) {
	return branch.Latitude + 0.5, branch.Longitude + 0.5
}

func fixedQuotes(quotes []RatePricing, err error) RatesFetcher {
	return func(ctx context.Context, originLat, originLon, destLat, destLon float64, items []RateItem) ([]RatePricing, error) {
		return quotes, err
	}
}

func lightCart() models.CartLines {
	return models.CartLines{{Name: "CAT 5 KG", Price: 150000, Quantity: 2, Selected: true}}
}

func heavyCart() models.CartLines {
	return models.CartLines{{Name: "CAT 20 KG", Price: 800000, Quantity: 2, Selected: true}}
}

func TestResolveIncludesSelfPickupFirst(t *testing.T) {
	svc := &RatesService{fetch: fixedQuotes(nil, nil), runner: NewLatestRunner()}
	branch := models.DefaultBranch()
	lat, lon := nearbyDest(branch)

	options, err := svc.Resolve(context.Background(), branch, lat, lon, lightCart())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(options) == 0 {
		t.Fatal("expected at least the self-pickup option")
	}
	if options[0].ProviderCode != "self" || options[0].Price != 0 {
		t.Fatalf("first option = %+v, want self pickup at price 0", options[0])
	}
}

func TestResolveExpressHalvesCheapestQuote(t *testing.T) {
	quotes := []RatePricing{
		{CourierCode: "jne", CourierName: "JNE", CourierServiceName: "REG", Price: 22000, Duration: "1-2 hari"},
		{CourierCode: "grab", CourierName: "GRAB", CourierServiceName: "INSTANT", Price: 18000, Duration: "1-2 jam"},
	}
	svc := &RatesService{fetch: fixedQuotes(quotes, nil), runner: NewLatestRunner()}
	branch := models.DefaultBranch()
	lat, lon := nearbyDest(branch)

	options, err := svc.Resolve(context.Background(), branch, lat, lon, lightCart())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// self pickup, express, then both aggregator quotes
	if len(options) != 4 {
		t.Fatalf("got %d options, want 4", len(options))
	}
	express := options[1]
	if express.CourierName != "MU EXPRESS" || !express.Internal {
		t.Fatalf("second option = %+v, want internal express", express)
	}
	if express.Price != 9000 {
		t.Fatalf("express price = %v, want 9000 (half of cheapest 18000)", express.Price)
	}
	if options[2].Price != 22000 || options[3].Price != 18000 {
		t.Fatalf("aggregator quotes reordered: %+v", options[2:])
	}
}

func TestResolveExpressGates(t *testing.T) {
	quotes := []RatePricing{{CourierCode: "jne", CourierName: "JNE", Price: 20000}}
	branch := models.DefaultBranch()

	t.Run("too far", func(t *testing.T) {
		svc := &RatesService{fetch: fixedQuotes(quotes, nil), runner: NewLatestRunner()}
		lat, lon := farDest(branch)
		options, err := svc.Resolve(context.Background(), branch, lat, lon, lightCart())
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		for _, opt := range options {
			if opt.CourierName == "MU EXPRESS" {
				t.Fatalf("express offered beyond the distance limit: %+v", opt)
			}
		}
	})

	t.Run("too heavy", func(t *testing.T) {
		svc := &RatesService{fetch: fixedQuotes(quotes, nil), runner: NewLatestRunner()}
		lat, lon := nearbyDest(branch)
		options, err := svc.Resolve(context.Background(), branch, lat, lon, heavyCart())
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		for _, opt := range options {
			if opt.CourierName == "MU EXPRESS" {
				t.Fatalf("express offered above the weight limit: %+v", opt)
			}
		}
	})
}

func TestResolveDegradesOnAggregatorFailure(t *testing.T) {
	branch := models.DefaultBranch()

	t.Run("eligible destination gets flat express", func(t *testing.T) {
		svc := &RatesService{fetch: fixedQuotes(nil, errors.New("upstream 500")), runner: NewLatestRunner()}
		lat, lon := nearbyDest(branch)
		options, err := svc.Resolve(context.Background(), branch, lat, lon, lightCart())
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if len(options) != 2 {
			t.Fatalf("got %d options, want self pickup plus fallback express", len(options))
		}
		if options[1].Price != expressFallbackPrice {
			t.Fatalf("fallback price = %v, want %v", options[1].Price, float64(expressFallbackPrice))
		}
	})

	t.Run("ineligible destination gets pickup only", func(t *testing.T) {
		svc := &RatesService{fetch: fixedQuotes(nil, errors.New("upstream 500")), runner: NewLatestRunner()}
		lat, lon := farDest(branch)
		options, err := svc.Resolve(context.Background(), branch, lat, lon, lightCart())
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if len(options) != 1 || options[0].ProviderCode != "self" {
			t.Fatalf("options = %+v, want self pickup only", options)
		}
	})
}

func TestResolveSurfacesCancellation(t *testing.T) {
	svc := &RatesService{
		fetch: func(ctx context.Context, _, _, _, _ float64, _ []RateItem) ([]RatePricing, error) {
			return nil, context.Canceled
		},
		runner: NewLatestRunner(),
	}
	branch := models.DefaultBranch()
	lat, lon := nearbyDest(branch)

	_, err := svc.Resolve(context.Background(), branch, lat, lon, lightCart())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestResolveLatestDiscardsSupersededResult(t *testing.T) {
	branch := models.DefaultBranch()
	lat, lon := nearbyDest(branch)

	firstStarted := make(chan struct{})
	release := make(chan struct{})

	svc := &RatesService{
		fetch: func(ctx context.Context, _, _, _, _ float64, _ []RateItem) ([]RatePricing, error) {
			select {
			case firstStarted <- struct{}{}:
				// first request blocks until the second has finished
				<-release
			default:
			}
			return []RatePricing{{CourierCode: "jne", CourierName: "JNE", Price: 20000}}, nil
		},
		runner: NewLatestRunner(),
	}

	var wg sync.WaitGroup
	wg.Add(1)

	var firstStale bool
	go func() {
		defer wg.Done()
		_, stale, _ := svc.ResolveLatest(context.Background(), "user-1", branch, lat, lon, lightCart())
		firstStale = stale
	}()

	<-firstStarted
	options, stale, err := svc.ResolveLatest(context.Background(), "user-1", branch, lat, lon, lightCart())
	close(release)
	wg.Wait()

	if err != nil {
		t.Fatalf("second ResolveLatest: %v", err)
	}
	if stale {
		t.Fatal("second request reported stale, want fresh")
	}
	if len(options) == 0 {
		t.Fatal("second request returned no options")
	}
	if !firstStale {
		t.Fatal("superseded first request was not marked stale")
	}
}
