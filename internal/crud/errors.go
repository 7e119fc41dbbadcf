package crud

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/folio-dev/folio/internal/storage"
)

// translate maps a store error to an HTTP status and user-facing message.
// Single shared routine: duplicate key becomes "<Field> already exists",
// validation surfaces the failing field's message, everything else collapses
// to a generic database error. No retries anywhere; one attempt, fail fast.
func (rs *Resource) translate(err error) (int, string) {
	var dup *storage.DuplicateError
	if errors.As(err, &dup) {
		return http.StatusBadRequest, fmt.Sprintf("%s already exists", dup.Field)
	}

	var invalid *storage.ValidationError
	if errors.As(err, &invalid) {
		return http.StatusBadRequest, invalid.Message
	}

	if errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound, fmt.Sprintf("%s not found.", capitalize(rs.opts.Label))
	}

	return http.StatusInternalServerError, "Database error occurred"
}
