package server

import (
	"time"

	"github.com/Kyz7/kingsbuilder/internal/auth"
	"github.com/Kyz7/kingsbuilder/internal/pages"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func SetupRoutes(app *fiber.App, svc *pages.Service, opts Options) {
	// Middleware
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Shopify-Shop-Domain, X-Shopify-Access-Token",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Kings Builder API is running",
			"history": svc.HistoryAvailable(),
		})
	})

	h := pages.NewHandler(svc)

	// Serializer only, no shop needed
	app.Post("/api/preview", h.PreviewHandler)

	// ==========================================
	// PAGES (shop identity required)
	// ==========================================
	pageGroup := app.Group("/api/pages")
	pageGroup.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))
	pageGroup.Use(auth.Identity(opts.APISecret))

	pageGroup.Get("/", h.ListPagesHandler)
	pageGroup.Post("/", h.CreatePageHandler)
	pageGroup.Get("/:id", h.GetPageHandler)
	pageGroup.Put("/:id", h.SavePageHandler)
	pageGroup.Delete("/:id", h.DeletePageHandler)
	pageGroup.Post("/:id/publish", h.PublishPageHandler)

	// Version history
	pageGroup.Get("/:id/versions", h.ListVersionsHandler)
	pageGroup.Get("/:id/versions/:version", h.GetVersionHandler)
	pageGroup.Post("/:id/versions/:version/restore", h.RestoreVersionHandler)
}
