package utils

import (
	"fmt"
	"strconv"
)

const pageSizeDefault = 20
const pageSizeMax = 100

// GetPaginationParams calculates the offset and limit for pagination based on the provided values.
// If offset or limit are nil, default values are used. The limit is capped at a maximum value.
func GetPaginationParams(offset *int, limit *int) (int, int) {
	finalOffset := 0
	finalLimit := pageSizeDefault

	if offset != nil && *offset >= 0 {
		finalOffset = *offset
	}

	if limit != nil && *limit > 0 {
		finalLimit = min(*limit, pageSizeMax)
	}

	return finalOffset, finalLimit
}

// ParsePaginationQuery parses optional "offset" and "limit" query values. Empty strings yield nil.
func ParsePaginationQuery(offsetStr, limitStr string) (*int, *int, error) {
	offset, err := parseOptionalInt("offset", offsetStr)
	if err != nil {
		return nil, nil, err
	}
	limit, err := parseOptionalInt("limit", limitStr)
	if err != nil {
		return nil, nil, err
	}
	return offset, limit, nil
}

func parseOptionalInt(name, value string) (*int, error) {
	if value == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid '%s' query parameter, must be an integer", name)
	}
	return &n, nil
}
