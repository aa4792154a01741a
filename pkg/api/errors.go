package api

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	ErrorUnauthorized = "unauthorized"
	ErrorForbidden    = "forbidden"
	ErrorNotFound     = "not_found"
	ErrorConflict     = "conflict"
	ErrorServer       = "server_error"
	ErrorNetwork      = "network_error"
)

// Error represents a stable, categorized backend-call failure. The category
// is what toast copy and retry decisions key on; the detail is free text.
type Error struct {
	Category string
	Detail   string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return e.Category
	}

	return fmt.Sprintf("%s: %s", e.Category, e.Detail)
}

// NewError creates a categorized backend error.
func NewError(category string, detail string) error {
	return &Error{Category: category, Detail: detail}
}

// CategoryFromError returns the stable category for an error when available.
func CategoryFromError(err error) string {
	if err == nil {
		return ""
	}

	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Category
	}

	return ErrorNetwork
}

// categoryFromStatus maps an HTTP status code onto the error taxonomy.
func categoryFromStatus(statusCode int) string {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrorUnauthorized
	case http.StatusForbidden:
		return ErrorForbidden
	case http.StatusNotFound:
		return ErrorNotFound
	case http.StatusConflict:
		return ErrorConflict
	default:
		return ErrorServer
	}
}
