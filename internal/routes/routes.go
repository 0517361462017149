package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/megautama/internal/cache"
	"github.com/example/megautama/internal/config"
	"github.com/example/megautama/internal/handlers"
	"github.com/example/megautama/internal/middleware"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	rdb := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	catalogCache := cache.NewCatalogCache(rdb, cfg.CatalogCacheTTL)
	dedupe := cache.NewEventDedupe(rdb, cfg.WebhookDedupTTL)

	authHandler := handlers.NewAuthHandler(db, cfg)
	catalogHandler := handlers.NewCatalogHandler(catalogCache)
	cartHandler := handlers.NewCartHandler(db)
	checkoutHandler := handlers.NewCheckoutHandler(db, cfg)
	orderHandler := handlers.NewOrderHandler(db)
	profileHandler := handlers.NewProfileHandler(db)
	webhookHandler := handlers.NewWebhookHandler(db, dedupe)

	api := app.Group("/api")

	// Auth
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Catalog proxy
	products := api.Group("/products")
	products.Get("/", catalogHandler.Products)
	products.Get("/:productId", catalogHandler.Products)

	requireAuth := middleware.AuthMiddleware(cfg)

	// Cart
	cart := api.Group("/cart", requireAuth)
	cart.Get("/", cartHandler.Get)
	cart.Post("/items", cartHandler.Add)
	cart.Delete("/items/:lineId", cartHandler.Remove)
	cart.Patch("/items/:lineId/quantity", cartHandler.SetQuantity)
	cart.Patch("/items/:lineId/selected", cartHandler.SetSelected)
	cart.Patch("/selected", cartHandler.SelectAll)
	cart.Post("/checkout", cartHandler.BeginCheckout)

	// Checkout session
	checkout := api.Group("/checkout", requireAuth)
	checkout.Get("/branches", checkoutHandler.Branches)
	checkout.Post("/rates", checkoutHandler.Rates)
	checkout.Post("/submit", checkoutHandler.Submit)

	// Order history
	orders := api.Group("/orders", requireAuth)
	orders.Get("/", orderHandler.List)
	orders.Get("/:orderId", orderHandler.Get)
	orders.Delete("/:orderId", orderHandler.Delete)

	// Profile and loyalty
	profile := api.Group("/profile", requireAuth)
	profile.Get("/", profileHandler.Get)
	profile.Post("/check-in", profileHandler.CheckIn)
	profile.Get("/rewards", profileHandler.Redemptions)
	profile.Post("/rewards", profileHandler.RedeemReward)

	// Payment gateway callback, authenticated by callback token
	api.Post("/webhooks/xendit",
		middleware.WebhookAuthMiddleware(cfg.XenditCallbackToken),
		webhookHandler.XenditCallback,
	)
}
