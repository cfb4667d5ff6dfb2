package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any cursor query can request.
	MaxLimit = 100

	cursorPrefix = "pos"
)

// Params holds cursor pagination inputs from controllers or services.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points at the last row of the previous page. Position is a
// monotonically increasing column such as a serial id or a ledger sequence.
type Cursor struct {
	Position int64
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer returns the normalization result plus one to detect the next page.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor builds an opaque cursor string.
func EncodeCursor(cursor Cursor) string {
	payload := fmt.Sprintf("%s|%d", cursorPrefix, cursor.Position)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes the cursor string back into its components.
func ParseCursor(value string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 || parts[0] != cursorPrefix {
		return nil, fmt.Errorf("invalid cursor format")
	}

	position, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || position <= 0 {
		return nil, fmt.Errorf("invalid cursor position")
	}
	return &Cursor{Position: position}, nil
}

// Page trims the buffered row off items and returns the next cursor when more rows exist.
func Page[T any](items []T, limit int, position func(T) int64) ([]T, string) {
	limit = NormalizeLimit(limit)
	if len(items) <= limit {
		return items, ""
	}
	items = items[:limit]
	return items, EncodeCursor(Cursor{Position: position(items[len(items)-1])})
}
