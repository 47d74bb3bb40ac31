package handler

import (
	"github.com/gofiber/fiber/v2"

	"docvault/internal/service"
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Documents service.DocumentService
	Archives  service.ArchiveService
	Links     service.LinkService
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// publicBaseURL prefixes issued links; empty means derive it from the request.
func RegisterRoutes(app *fiber.App, db Pinger, svc Services, publicBaseURL string) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	docs := app.Group("/documents")
	docs.Get("/", ListDocuments(svc.Documents))
	docs.Post("/", UploadDocuments(svc.Documents))
	docs.Post("/archive", DownloadArchive(svc.Archives))
	docs.Get("/:id", GetDocument(svc.Documents))
	docs.Get("/:id/download", DownloadDocument(svc.Documents))
	docs.Post("/:id/links", GenerateLink(svc.Links, publicBaseURL))

	app.Get("/public/:token", RedeemPublicLink(svc.Links, svc.Documents))
}
