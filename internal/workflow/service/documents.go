package service

import (
	"context"
	"errors"
	"strings"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/catalog"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/model"
)

// DocumentTypeResolver resolves a document type key to its display value.
type DocumentTypeResolver interface {
	ResolveDocumentType(ctx context.Context, key string) (string, error)
}

func normalizeDocType(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateDocuments checks uploaded document types against required keys. Uploaded files may be
// tagged with either the key or the display value, so both are accepted. Missing requirements are
// reported by display value, or by key when the catalog has no entry.
func ValidateDocuments(ctx context.Context, resolver DocumentTypeResolver, required []string, uploaded []string) (*model.DocumentValidation, error) {
	result := &model.DocumentValidation{
		RequiredDocuments: []string{},
		UploadedDocuments: []string{},
		MissingDocuments:  []string{},
	}

	present := make(map[string]bool, len(uploaded))
	for _, docType := range uploaded {
		norm := normalizeDocType(docType)
		if norm == "" || present[norm] {
			continue
		}
		present[norm] = true
		result.UploadedDocuments = append(result.UploadedDocuments, strings.TrimSpace(docType))
	}

	seen := make(map[string]bool, len(required))
	for _, key := range required {
		normKey := normalizeDocType(key)
		if normKey == "" || seen[normKey] {
			continue
		}
		seen[normKey] = true

		display := strings.TrimSpace(key)
		name, err := resolver.ResolveDocumentType(ctx, key)
		switch {
		case err == nil:
			display = name
		case errors.Is(err, catalog.ErrEntryNotFound):
			// matched by key only
		default:
			return nil, err
		}

		result.RequiredDocuments = append(result.RequiredDocuments, display)
		if !present[normKey] && !present[normalizeDocType(display)] {
			result.MissingDocuments = append(result.MissingDocuments, display)
		}
	}
	return result, nil
}
