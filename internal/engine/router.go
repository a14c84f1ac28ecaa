package engine

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the read API. middleware runs before every route,
// normally the auth middleware.
func RegisterRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	api := app.Group("/api", middleware...)

	api.Get("/", h.Resources)
	api.Get("/:resource", h.List)
	api.Get("/:resource/schema", h.Schema)
	api.Post("/:resource/query", h.Query)
}
