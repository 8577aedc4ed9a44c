package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/catalog"
)

type staticDocumentTypes map[string]string

func (s staticDocumentTypes) ResolveDocumentType(_ context.Context, key string) (string, error) {
	if v, ok := s[strings.ToLower(key)]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", catalog.ErrEntryNotFound, key)
}

type failingDocumentTypes struct{ err error }

func (f failingDocumentTypes) ResolveDocumentType(context.Context, string) (string, error) {
	return "", f.err
}

func TestValidateDocuments(t *testing.T) {
	ctx := context.Background()
	resolver := staticDocumentTypes{"x": "Quote", "y": "Statement of Work"}

	t.Run("Reports Missing By Display Name", func(t *testing.T) {
		result, err := ValidateDocuments(ctx, resolver, []string{"X", "Y"}, []string{"X"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Quote", "Statement of Work"}, result.RequiredDocuments)
		assert.Equal(t, []string{"Statement of Work"}, result.MissingDocuments)
		assert.False(t, result.IsComplete())
	})

	t.Run("Display Value Satisfies Requirement", func(t *testing.T) {
		result, err := ValidateDocuments(ctx, resolver, []string{"x", "y"}, []string{" quote ", "STATEMENT OF WORK"})
		require.NoError(t, err)
		assert.Empty(t, result.MissingDocuments)
		assert.True(t, result.IsComplete())
	})

	t.Run("Unknown Key Matched By Key", func(t *testing.T) {
		result, err := ValidateDocuments(ctx, resolver, []string{"nda"}, []string{"NDA"})
		require.NoError(t, err)
		assert.Empty(t, result.MissingDocuments)

		result, err = ValidateDocuments(ctx, resolver, []string{"nda"}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"nda"}, result.MissingDocuments)
	})

	t.Run("Duplicates And Blanks Ignored", func(t *testing.T) {
		result, err := ValidateDocuments(ctx, resolver, []string{"x", "X", " "}, []string{"x", "x", ""})
		require.NoError(t, err)
		assert.Len(t, result.RequiredDocuments, 1)
		assert.Len(t, result.UploadedDocuments, 1)
	})

	t.Run("No Requirements", func(t *testing.T) {
		result, err := ValidateDocuments(ctx, resolver, nil, []string{"x"})
		require.NoError(t, err)
		assert.True(t, result.IsComplete())
		assert.NotNil(t, result.MissingDocuments)
	})

	t.Run("Catalog Failure", func(t *testing.T) {
		dbErr := errors.New("db down")
		_, err := ValidateDocuments(ctx, failingDocumentTypes{err: dbErr}, []string{"x"}, nil)
		assert.ErrorIs(t, err, dbErr)
	})
}
