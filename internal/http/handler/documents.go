package handler

import (
	"io"
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/service"
)

// archiveRequest is the body of POST /documents/archive.
type archiveRequest struct {
	IDs []string `json:"ids"`
}

// ListDocuments returns documents in key order with their previews.
//
// @Summary List documents
// @Tags documents
// @Produce json
// @Param limit query int false "page size, 0 for all" default(0)
// @Param offset query int false "items to skip" default(0)
// @Success 200 {object} service.DocumentListResult
// @Failure 400 {object} errorPayload
// @Failure 503 {object} errorPayload
// @Router /documents [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "0"))
		if err != nil || limit < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil || offset < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// GetDocument returns one document's metadata and preview.
//
// @Summary Get document
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} model.Document
// @Failure 404 {object} errorPayload
// @Router /documents/{id} [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DownloadDocument streams a document's bytes and counts the download.
//
// @Summary Download document
// @Tags documents
// @Produce octet-stream
// @Param id path string true "document id"
// @Success 200 {file} binary
// @Failure 404 {object} errorPayload
// @Router /documents/{id}/download [get]
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.Download(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return sendDocument(c, res)
	}
}

// UploadDocuments stores every file of a multipart batch independently.
// 201 when all files were stored, 207 when some failed, 422 when none were stored.
//
// @Summary Upload documents
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "one or more files"
// @Success 201 {object} service.UploadResult
// @Success 207 {object} service.UploadResult
// @Failure 400 {object} errorPayload
// @Failure 422 {object} service.UploadResult
// @Router /documents [post]
func UploadDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		headers := append(form.File["files"], form.File["file"]...)
		if len(headers) == 0 {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		files := make([]service.UploadFile, 0, len(headers))
		for _, fh := range headers {
			files = append(files, uploadFile(fh))
		}

		res, err := svc.Upload(c.UserContext(), files)
		if err != nil {
			return writeServiceError(c, err)
		}

		status := fiber.StatusCreated
		switch {
		case len(res.Uploaded) == 0:
			status = fiber.StatusUnprocessableEntity
		case len(res.Failed) > 0:
			status = fiber.StatusMultiStatus
		}
		return c.Status(status).JSON(res)
	}
}

func uploadFile(fh *multipart.FileHeader) service.UploadFile {
	return service.UploadFile{
		Filename: fh.Filename,
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// DownloadArchive bundles the requested documents into documents.zip.
// Unknown ids are skipped; X-Archive-Skipped carries their count.
//
// @Summary Download several documents as a zip
// @Tags documents
// @Accept json
// @Produce application/zip
// @Param body body archiveRequest true "document ids"
// @Success 200 {file} binary
// @Failure 400 {object} errorPayload
// @Router /documents/archive [post]
func DownloadArchive(svc service.ArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req archiveRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if len(req.IDs) == 0 {
			return writeError(c, fiber.StatusBadRequest, "IDS_REQUIRED", "ids are required")
		}

		res, err := svc.Build(c.UserContext(), req.IDs)
		if err != nil {
			return writeServiceError(c, err)
		}

		c.Set(fiber.HeaderContentType, "application/zip")
		c.Set("X-Archive-Skipped", strconv.Itoa(len(res.Skipped)))
		c.Attachment(service.ArchiveName)
		return c.Send(res.Data)
	}
}

func sendDocument(c *fiber.Ctx, res *service.DownloadResult) error {
	c.Attachment(res.Document.DisplayName)
	c.Set(fiber.HeaderContentType, res.ContentType)
	return c.Send(res.Data)
}
