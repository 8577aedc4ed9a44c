package uploads

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/rfpo"
)

// StorageDriver is the blob store behind request attachments. Keys are opaque single path
// segments; drivers reject anything else with drivers.ErrInvalidKey.
type StorageDriver interface {
	Save(ctx context.Context, key string, body io.Reader, contentType string) error
	// Get returns the content and its content type, or an error matching drivers.ErrObjectNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
	// GenerateURL links to the object, presigned for expires where the driver supports it.
	GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// UploadService stores attachment blobs and records them against their request.
type UploadService struct {
	Driver   StorageDriver
	Recorder FileRecorder
}

func NewUploadService(driver StorageDriver, recorder FileRecorder) *UploadService {
	return &UploadService{Driver: driver, Recorder: recorder}
}

// storageKey derives an opaque key that keeps a short, safe extension for content sniffing.
func storageKey(id uuid.UUID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return id.String() + ext
}

// Upload saves the blob and records it. A blob whose metadata cannot be recorded is removed again.
func (s *UploadService) Upload(ctx context.Context, upload FileUpload, body io.Reader) (*rfpo.UploadedFile, error) {
	if upload.MimeType == "" {
		upload.MimeType = "application/octet-stream"
	}
	id := uuid.New()
	key := storageKey(id, upload.FileName)

	if err := s.Driver.Save(ctx, key, body, upload.MimeType); err != nil {
		return nil, fmt.Errorf("storage driver failed: %w", err)
	}

	url, err := s.Driver.GenerateURL(ctx, key, 0)
	if err != nil {
		s.cleanup(ctx, key)
		return nil, fmt.Errorf("failed to generate URL: %w", err)
	}

	file := &rfpo.UploadedFile{
		RFPOID:       upload.RFPOID,
		FileName:     filepath.Base(upload.FileName),
		StorageKey:   key,
		URL:          url,
		Size:         upload.Size,
		MimeType:     upload.MimeType,
		DocumentType: strings.TrimSpace(upload.DocumentType),
		UploadedBy:   upload.UploadedBy,
	}
	file.ID = id
	if err := s.Recorder.RecordFile(ctx, file); err != nil {
		s.cleanup(ctx, key)
		return nil, err
	}

	log.Info().
		Str("rfpo_id", upload.RFPOID.String()).
		Str("key", key).
		Str("document_type", file.DocumentType).
		Msg("file uploaded")
	return file, nil
}

func (s *UploadService) cleanup(ctx context.Context, key string) {
	if err := s.Driver.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to clean up orphaned upload")
	}
}

// Download retrieves the file content and its MIME type.
func (s *UploadService) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return s.Driver.Get(ctx, key)
}
