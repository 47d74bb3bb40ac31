package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/service"
)

// linkResponse is returned when a public link is issued.
type linkResponse struct {
	Token      string    `json:"token"`
	URL        string    `json:"url"`
	DocumentID string    `json:"document_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// GenerateLink issues a public link for a document.
// URLs are built from baseURL, or from the request when baseURL is empty.
//
// @Summary Issue a public link
// @Tags links
// @Produce json
// @Param id path string true "document id"
// @Success 201 {object} linkResponse
// @Failure 404 {object} errorPayload
// @Router /documents/{id}/links [post]
func GenerateLink(links service.LinkService, baseURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok, err := links.Issue(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}

		base := strings.TrimRight(baseURL, "/")
		if base == "" {
			base = c.BaseURL()
		}
		return c.Status(fiber.StatusCreated).JSON(linkResponse{
			Token:      tok.Token,
			URL:        base + "/public/" + tok.Token,
			DocumentID: tok.DocumentID,
			CreatedAt:  tok.CreatedAt,
		})
	}
}

// RedeemPublicLink serves the document bound to a token and counts the download.
//
// @Summary Redeem a public link
// @Tags links
// @Produce octet-stream
// @Param token path string true "public token"
// @Success 200 {file} binary
// @Failure 404 {object} errorPayload
// @Router /public/{token} [get]
func RedeemPublicLink(links service.LinkService, docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := links.Redeem(c.UserContext(), c.Params("token"))
		if err != nil {
			return writeServiceError(c, err)
		}
		res, err := docs.Download(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return sendDocument(c, res)
	}
}
