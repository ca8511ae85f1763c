package catalog

import (
	"errors"
	"fmt"
)

// ErrInvalidCatalog is the sentinel matched by every catalog validation failure.
var ErrInvalidCatalog = errors.New("invalid catalog")

// CatalogError describes why a catalog was rejected.
type CatalogError struct {
	Field  string // offending field, e.g. "items[2].quantity" or "coupons[c1].scope"
	Reason string
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("invalid catalog: %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrInvalidCatalog) match.
func (e *CatalogError) Unwrap() error {
	return ErrInvalidCatalog
}

func invalid(field, format string, args ...any) *CatalogError {
	return &CatalogError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
