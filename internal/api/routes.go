package api

import (
	"github.com/bilgisen/folio/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, h *Handlers, adminKey string) {
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	// Public API
	api := app.Group("/api/v1")
	api.Get("/health", h.HealthCheck)

	posts := api.Group("/posts")
	{
		posts.Get("", h.ListPublished)
		posts.Get("/:slug", h.GetPublished)
		posts.Post("/:slug/like", h.LikePost)
	}

	slugs := api.Group("/slugs")
	{
		slugs.Get("/derive", h.DeriveSlug)
		slugs.Get("/available", h.SlugAvailability)
	}

	// Admin endpoints
	admin := app.Group("/admin", middleware.AdminOnly(adminKey))
	{
		admin.Get("/posts", h.ListAll)
		admin.Post("/posts", middleware.ValidateBody[saveRequest](h.validator), h.CreatePost)
		admin.Post("/posts/validate", h.ValidatePost)
		admin.Post("/posts/bulk", middleware.ValidateBody[bulkRequest](h.validator), h.Bulk)
		admin.Get("/posts/:id", h.GetPost)
		admin.Put("/posts/:id", h.SavePost)
		admin.Patch("/posts/:id", h.PatchPost)
		admin.Delete("/posts/:id", h.DeletePost)
		admin.Post("/posts/:id/translate", h.TranslatePost)
		admin.Post("/media", h.UploadMedia)
		admin.Delete("/translations/cache", h.ClearTranslationCache)
	}

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}

// NewApp creates the fiber app with the error handler every route relies on
func NewApp(cfg fiber.Config) *fiber.App {
	cfg.ErrorHandler = middleware.ErrorHandler
	return fiber.New(cfg)
}
