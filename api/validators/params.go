package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
	"github.com/angelmondragon/foodhall-backend/pkg/types"
)

// ParsePathID reads a positive integer route parameter.
func ParsePathID(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s is required", key)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid %s", key).WithDetails(map[string]any{"field": key})
	}
	return id, nil
}

// ParseQueryInt reads an optional bounded integer query parameter.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be numeric", key).WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s out of range", key).WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// SanitizeString trims whitespace and truncates to maxLen runes.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 {
		return trimmed
	}
	runes := []rune(trimmed)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return trimmed
}

// PositiveMoney rejects zero, negative, and sub-cent amounts.
func PositiveMoney(field string, amount decimal.Decimal) error {
	if _, err := types.ParsePositiveMoney(amount.String()); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{field: err.Error()})
	}
	return nil
}

// OptionalMoney validates a non-negative amount when one was supplied.
func OptionalMoney(field string, amount *decimal.Decimal) error {
	if amount == nil {
		return nil
	}
	if _, err := types.ParseMoney(amount.String()); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{field: err.Error()})
	}
	return nil
}
