package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// maxDollars keeps dollars*100 plus two decimal digits within int64.
const maxDollars = (math.MaxInt64 - 99) / 100

func isDigits(s string) bool {
	return s != "" && strings.TrimLeft(s, "0123456789") == ""
}

// ParseDollars converts a catalog amount such as "5000", "$15,000" or "99.50" to cents.
func ParseDollars(value string) (int64, error) {
	clean := strings.TrimSpace(value)
	clean = strings.TrimPrefix(clean, "$")
	clean = strings.ReplaceAll(clean, ",", "")
	if clean == "" {
		return 0, fmt.Errorf("empty amount")
	}

	whole, frac, hasFrac := strings.Cut(clean, ".")
	if !isDigits(whole) {
		return 0, fmt.Errorf("invalid amount %q: expected a non-negative number", value)
	}
	dollars, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	if dollars > maxDollars {
		return 0, fmt.Errorf("invalid amount %q: too large", value)
	}

	var cents int64
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 || !isDigits(frac) {
			return 0, fmt.Errorf("invalid amount %q: expected at most two decimal digits", value)
		}
		if len(frac) == 1 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", value, err)
		}
	}
	return dollars*100 + cents, nil
}

// FormatDollars renders cents with thousands separators, e.g. 500000 -> "$5,000".
func FormatDollars(cents int64) string {
	if cents%100 == 0 {
		return printer.Sprintf("$%d", cents/100)
	}
	return printer.Sprintf("$%.2f", float64(cents)/100)
}

// StageName derives the display name of a stage from its bracket ceiling.
func StageName(ceilingCents int64) string {
	return "Up to " + FormatDollars(ceilingCents)
}
