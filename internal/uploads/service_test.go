package uploads

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/rfpo"
)

// MockDriver implements StorageDriver for testing
type MockDriver struct {
	SavedKey       string
	SavedBody      []byte
	GenerateURLErr error
	DeleteCalled   bool
	DeleteKey      string
}

func (m *MockDriver) Save(_ context.Context, key string, body io.Reader, _ string) error {
	m.SavedKey = key
	content, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.SavedBody = content
	return nil
}

func (m *MockDriver) Get(_ context.Context, _ string) (io.ReadCloser, string, error) {
	return io.NopCloser(bytes.NewReader(m.SavedBody)), "application/test", nil
}

func (m *MockDriver) Delete(_ context.Context, key string) error {
	m.DeleteCalled = true
	m.DeleteKey = key
	return nil
}

func (m *MockDriver) GenerateURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if m.GenerateURLErr != nil {
		return "", m.GenerateURLErr
	}
	return "/test/" + key, nil
}

type recorderFunc func(ctx context.Context, file *rfpo.UploadedFile) error

func (f recorderFunc) RecordFile(ctx context.Context, file *rfpo.UploadedFile) error {
	return f(ctx, file)
}

func TestUploadService_Upload(t *testing.T) {
	mock := &MockDriver{}
	var recorded *rfpo.UploadedFile
	service := NewUploadService(mock, recorderFunc(func(_ context.Context, file *rfpo.UploadedFile) error {
		recorded = file
		return nil
	}))

	rfpoID := uuid.New()
	content := []byte("%PDF-1.7")
	file, err := service.Upload(context.Background(), FileUpload{
		RFPOID:       rfpoID,
		DocumentType: " quote ",
		FileName:     "Vendor Quote.PDF",
		Size:         int64(len(content)),
		UploadedBy:   "u-1",
	}, bytes.NewReader(content))
	require.NoError(t, err)

	assert.Same(t, recorded, file)
	assert.Equal(t, rfpoID, file.RFPOID)
	assert.Equal(t, "quote", file.DocumentType)
	assert.Equal(t, "Vendor Quote.PDF", file.FileName)
	assert.Equal(t, "application/octet-stream", file.MimeType)
	assert.Equal(t, file.ID.String()+".pdf", file.StorageKey)
	assert.Equal(t, mock.SavedKey, file.StorageKey)
	assert.Equal(t, "/test/"+file.StorageKey, file.URL)
	assert.Equal(t, content, mock.SavedBody)
	assert.False(t, mock.DeleteCalled)
}

func TestUploadService_CleansUpOnFailure(t *testing.T) {
	t.Run("URL Generation", func(t *testing.T) {
		mock := &MockDriver{GenerateURLErr: io.ErrUnexpectedEOF}
		service := NewUploadService(mock, recorderFunc(func(context.Context, *rfpo.UploadedFile) error {
			t.Fatal("recorder must not be called")
			return nil
		}))

		_, err := service.Upload(context.Background(), FileUpload{RFPOID: uuid.New(), FileName: "a.jpg"}, strings.NewReader("x"))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		assert.True(t, mock.DeleteCalled)
		assert.Equal(t, mock.SavedKey, mock.DeleteKey)
	})

	t.Run("Recording", func(t *testing.T) {
		mock := &MockDriver{}
		service := NewUploadService(mock, recorderFunc(func(context.Context, *rfpo.UploadedFile) error {
			return rfpo.ErrNotEditable
		}))

		_, err := service.Upload(context.Background(), FileUpload{RFPOID: uuid.New(), FileName: "a.jpg"}, strings.NewReader("x"))
		assert.ErrorIs(t, err, rfpo.ErrNotEditable)
		assert.True(t, mock.DeleteCalled)
		assert.Equal(t, mock.SavedKey, mock.DeleteKey)
	})
}

func TestStorageKey(t *testing.T) {
	id := uuid.MustParse("6f1c2a9e-0000-4000-8000-000000000001")
	assert.Equal(t, id.String()+".pdf", storageKey(id, "spec.PDF"))
	assert.Equal(t, id.String(), storageKey(id, "noext"))
	assert.Equal(t, id.String(), storageKey(id, "weird.extension-that-is-long"))
}

func TestUploadService_Download(t *testing.T) {
	mock := &MockDriver{SavedBody: []byte("test content")}
	service := NewUploadService(mock, nil)

	reader, contentType, err := service.Download(context.Background(), "test-key")
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, "application/test", contentType)
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, mock.SavedBody, content)
}
