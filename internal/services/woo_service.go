package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

var catalogHTTPClient = &http.Client{Timeout: 15 * time.Second}

const defaultWooBaseURL = "https://megautamagroup.com"

// WooBaseURL exposes the configured WooCommerce store URL.
func WooBaseURL() string {
	base := strings.TrimSpace(os.Getenv("WOO_URL"))
	if base == "" {
		base = defaultWooBaseURL
	}
	return strings.TrimRight(base, "/")
}

// CatalogQuery filters a catalog product request.
type CatalogQuery struct {
	ID      string
	Search  string
	Page    int
	PerPage int
	OnSale  bool
}

// CatalogResponse bundles the upstream response for proxying.
type CatalogResponse struct {
	Status int
	Body   []byte
	Header http.Header
}

// CacheKey is a stable identifier for this query, used by the response cache.
func (q CatalogQuery) CacheKey() string {
	page := q.Page
	if page <= 0 {
		page = 1
	}
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = 12
	}
	return fmt.Sprintf("catalog:id=%s:q=%s:p=%d:pp=%d:sale=%t", q.ID, q.Search, page, perPage, q.OnSale)
}

// FetchProducts proxies a product list or single-product request to the
// WooCommerce REST API, injecting the server-side consumer credentials.
func FetchProducts(ctx context.Context, q CatalogQuery) (*CatalogResponse, error) {
	consumerKey := strings.TrimSpace(os.Getenv("WOO_CK"))
	consumerSecret := strings.TrimSpace(os.Getenv("WOO_CS"))
	if consumerKey == "" || consumerSecret == "" {
		return nil, errors.New("WOO_CK and WOO_CS are not configured")
	}

	endpoint := WooBaseURL() + "/wp-json/wc/v3/products"
	if q.ID != "" {
		endpoint += "/" + url.PathEscape(q.ID)
	}

	page := q.Page
	if page <= 0 {
		page = 1
	}
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = 12
	}

	values := url.Values{}
	values.Set("consumer_key", consumerKey)
	values.Set("consumer_secret", consumerSecret)
	values.Set("page", strconv.Itoa(page))
	values.Set("per_page", strconv.Itoa(perPage))
	values.Set("status", "publish")
	// Cache buster so the storefront always sees fresh stock and pricing.
	values.Set("_t", strconv.FormatInt(time.Now().UnixMilli(), 10))
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	if q.OnSale {
		values.Set("on_sale", "true")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create catalog request: %w", err)
	}

	resp, err := catalogHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute catalog request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read catalog response: %w", err)
	}

	return &CatalogResponse{
		Status: resp.StatusCode,
		Body:   body,
		Header: resp.Header.Clone(),
	}, nil
}
