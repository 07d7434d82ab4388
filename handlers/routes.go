package handlers

import "github.com/gofiber/fiber/v2"

// SetupRoutes wires the admin API onto the fiber app. Everything except
// login sits behind the bearer-token middleware.
func SetupRoutes(app *fiber.App, auth *Auth, admin *AdminHandler) {
	app.Post("/api/login", auth.Login)

	api := app.Group("/api", auth.Middleware())
	api.Get("/status", admin.Status)
	api.Get("/peers", admin.Peers)
	api.Get("/peers/:id/config", admin.PeerConfig)
	api.Get("/policy", admin.GetPolicy)
	api.Put("/policy", admin.SetPolicy)
	api.Post("/promo", admin.GeneratePromo)
	api.Get("/promo/stats", admin.PromoStats)
}
