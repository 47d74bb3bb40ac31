package model

import "time"

// DocumentRecord is the persisted metadata of a stored document.
// ID is assigned once at upload and names both the blob and the metadata row.
type DocumentRecord struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"name"`
	Extension     string    `json:"extension"`
	UploadedAt    time.Time `json:"uploaded_at"`
	DownloadCount int64     `json:"download_count"`
}

// Thumbnail is a small fixed-size raster preview of a document.
type Thumbnail struct {
	DocumentID string `json:"document_id"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Format     string `json:"format"`
	Data       []byte `json:"data"`
}

// Document is the public representation returned by the catalog.
// Preview is nil when no thumbnail could be built.
type Document struct {
	DocumentRecord
	Type        string     `json:"type"`
	ContentType string     `json:"content_type"`
	Icon        string     `json:"icon"`
	Size        int64      `json:"size"`
	Preview     *Thumbnail `json:"preview"`
}
