package routes

import (
	"github.com/anjiri1684/learnhub/handlers"
	"github.com/anjiri1684/learnhub/middleware"
	"github.com/gofiber/fiber/v2"
)

func CertificationRoutes(app *fiber.App, h *handlers.CertificationHandler, jwtSecret string) {
	certifications := app.Group("/api/certifications")

	certifications.Get("/user/:userId", h.ListForUser)
	certifications.Get("/verify/:code", h.Verify)
	certifications.Post("/issue", middleware.Protected(jwtSecret), middleware.AdminRequired(), h.Issue)
	certifications.Get("/:id/download", h.Download)
	certifications.Post("/:id/publish", middleware.Protected(jwtSecret), middleware.AdminRequired(), h.Publish)
}
