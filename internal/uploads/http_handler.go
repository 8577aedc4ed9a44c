package uploads

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/auth"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/rfpo"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/uploads/drivers"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
)

const maxUploadSize = 32 << 20

type HTTPHandler struct {
	Service *UploadService
}

func NewHTTPHandler(service *UploadService) *HTTPHandler {
	return &HTTPHandler{Service: service}
}

// Upload handles POST /requests/:id/files. The multipart form carries "file" and an optional
// "documentType".
func (h *HTTPHandler) Upload(c *gin.Context) {
	rfpoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer file.Close()

	uploaded, err := h.Service.Upload(c.Request.Context(), FileUpload{
		RFPOID:       rfpoID,
		DocumentType: c.PostForm("documentType"),
		FileName:     header.Filename,
		Size:         header.Size,
		MimeType:     header.Header.Get("Content-Type"),
		UploadedBy:   auth.GetAuthContext(c.Request.Context()).UserID(),
	}, file)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrRequestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, rfpo.ErrNotEditable):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			log.Error().Err(err).Str("rfpo_id", rfpoID.String()).Msg("upload failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, uploaded)
}

// Download handles GET /uploads/:key.
func (h *HTTPHandler) Download(c *gin.Context) {
	key := c.Param("key")
	reader, contentType, err := h.Service.Download(c.Request.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, drivers.ErrInvalidKey):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key"})
		case errors.Is(err, drivers.ErrObjectNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		default:
			log.Error().Err(err).Str("key", key).Msg("download failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "download failed"})
		}
		return
	}
	defer reader.Close()

	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("download interrupted")
	}
}
