package handlers

import (
	"errors"
	"strconv"
	"strings"
)

var errInvalidNumber = errors.New("invalid number")

// parseLimitParam reads a positive integer query value, falling back to def
// when empty and capping it at max.
func parseLimitParam(value string, def, max int64) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 1 {
		return 0, errInvalidNumber
	}
	if n > max {
		return max, nil
	}
	return n, nil
}

// parseOptionalBool treats an empty value as false.
func parseOptionalBool(value string) (bool, error) {
	if strings.TrimSpace(value) == "" {
		return false, nil
	}
	return parseBoolValue(value)
}
