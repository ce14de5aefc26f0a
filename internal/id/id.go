package id

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseClient parses a client ID ("1", " 65535 ") into a uint16.
func ParseClient(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid client ID %q: %w", s, err)
	}
	return uint16(v), nil
}

// ParseTx parses a transaction ID into a uint32.
func ParseTx(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid transaction ID %q: %w", s, err)
	}
	return uint32(v), nil
}

// FormatClient renders a client ID for the report.
func FormatClient(client uint16) string {
	return strconv.FormatUint(uint64(client), 10)
}
