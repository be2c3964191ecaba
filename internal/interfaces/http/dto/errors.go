package dto

import (
	"net/http"

	"github.com/storefront/backend/internal/domain/shared"
)

// StatusForError maps a domain error kind to an HTTP status code
func StatusForError(err error) int {
	switch shared.KindOf(err) {
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindConflict:
		return http.StatusConflict
	case shared.KindValidationFailed, shared.KindInvalidInput:
		return http.StatusBadRequest
	case shared.KindConfiguration:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// FromError converts a domain error into the response envelope
func FromError(err error) Response {
	kind := shared.KindOf(err)
	return NewErrorResponse(string(kind), err.Error())
}
