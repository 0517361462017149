package handlers

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/example/megautama/internal/cache"
	"github.com/example/megautama/internal/services"
)

// CatalogHandler proxies the product catalog so the storefront never holds
// the commerce API credentials.
type CatalogHandler struct {
	cache *cache.CatalogCache
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalogCache *cache.CatalogCache) *CatalogHandler {
	return &CatalogHandler{cache: catalogCache}
}

func catalogQueryFromCtx(c *fiber.Ctx) services.CatalogQuery {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	perPage, _ := strconv.Atoi(c.Query("per_page", "12"))
	return services.CatalogQuery{
		ID:      c.Params("productId"),
		Search:  c.Query("search"),
		Page:    page,
		PerPage: perPage,
		OnSale:  c.Query("on_sale") == "true",
	}
}

// Products serves a product list or, with a path id, a single product.
// Responses are cached briefly; the cache key includes every query filter.
func (h *CatalogHandler) Products(c *fiber.Ctx) error {
	q := catalogQueryFromCtx(c)

	if body, ok := h.cache.Get(c.Context(), q.CacheKey()); ok {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(body)
	}

	resp, err := services.FetchProducts(c.Context(), q)
	if err != nil {
		log.Printf("[Catalog] upstream fetch failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "catalog is unavailable")
	}

	if resp.Status == fiber.StatusOK {
		h.cache.Set(c.Context(), q.CacheKey(), resp.Body)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(resp.Status).Send(resp.Body)
}
