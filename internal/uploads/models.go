package uploads

import (
	"context"

	"github.com/google/uuid"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/rfpo"
)

// FileUpload describes one incoming attachment of a request.
type FileUpload struct {
	RFPOID       uuid.UUID
	DocumentType string // Catalog document type key; optional
	FileName     string
	Size         int64
	MimeType     string
	UploadedBy   string
}

// FileRecorder persists attachment metadata once the blob is stored.
type FileRecorder interface {
	RecordFile(ctx context.Context, file *rfpo.UploadedFile) error
}
