package server

import (
	"github.com/Kyz7/kingsbuilder/internal/pages"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Options struct {
	// APISecret verifies Shopify session tokens. Bearer tokens are rejected
	// when it is empty.
	APISecret string
}

func New(svc *pages.Service, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	app.Use(recover.New())

	SetupRoutes(app, svc, opts)

	return app
}
