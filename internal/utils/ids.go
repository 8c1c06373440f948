package utils

import (
	"strconv"

	"github.com/google/uuid"
)

func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// ParsePositiveInt parses a query parameter as a positive integer, falling
// back when the value is missing, non-numeric or non-positive.
func ParsePositiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)

	if err != nil || n <= 0 {
		return fallback
	}

	return n
}
