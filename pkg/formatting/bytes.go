// Package formatting parses byte-size settings and JSON embedded in model output.
package formatting

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// sizeUnits are base-1024 multiples, smallest first.
var sizeUnits = [...]string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatBytes renders n with the largest unit that keeps the value at or
// above one. Negative precision is treated as zero.
func FormatBytes(n int64, precision int) string {
	precision = max(precision, 0)

	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}

	if unit == 0 {
		return strconv.FormatInt(n, 10) + " B"
	}
	return strconv.FormatFloat(value, 'f', precision, 64) + " " + sizeUnits[unit]
}

// ParseBytes reads sizes such as "512", "64KB" or "1.5 mb". A missing unit
// means bytes.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})
	number, suffix := s, ""
	if split >= 0 {
		number, suffix = s[:split], strings.TrimSpace(s[split:])
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}

	multiplier := int64(1)
	for _, unit := range sizeUnits {
		if strings.EqualFold(suffix, unit) || (suffix == "" && unit == "B") {
			return int64(value * float64(multiplier)), nil
		}
		multiplier <<= 10
	}
	return 0, fmt.Errorf("unknown byte size unit %q", suffix)
}
