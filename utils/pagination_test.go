package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestGetPaginationParams(t *testing.T) {
	tests := []struct {
		name          string
		offset, limit *int
		wantOffset    int
		wantLimit     int
	}{
		{name: "Defaults", wantOffset: 0, wantLimit: 20},
		{name: "Explicit", offset: intPtr(40), limit: intPtr(10), wantOffset: 40, wantLimit: 10},
		{name: "Capped", limit: intPtr(1000), wantOffset: 0, wantLimit: 100},
		{name: "Negative Ignored", offset: intPtr(-5), limit: intPtr(0), wantOffset: 0, wantLimit: 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, limit := GetPaginationParams(tt.offset, tt.limit)
			assert.Equal(t, tt.wantOffset, offset)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestParsePaginationQuery(t *testing.T) {
	offset, limit, err := ParsePaginationQuery("", "")
	require.NoError(t, err)
	assert.Nil(t, offset)
	assert.Nil(t, limit)

	offset, limit, err = ParsePaginationQuery("5", "15")
	require.NoError(t, err)
	assert.Equal(t, 5, *offset)
	assert.Equal(t, 15, *limit)

	_, _, err = ParsePaginationQuery("x", "")
	assert.ErrorContains(t, err, "offset")
	_, _, err = ParsePaginationQuery("", "ten")
	assert.ErrorContains(t, err, "limit")
}
