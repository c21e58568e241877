// Package errrpc defines the structured error returned over the message
// transport and maps domain sentinel errors onto it.
// Add a case to fromSentinel for each new domain sentinel error.
package errrpc

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	productdomain "github.com/Ecommerce-Nest-Microservicios/products-ms/services/product/domain"
)

const unexpectedMessage = "Unexpected error occurred"

// Error is the uniform failure body: {"message","error","code","errors"}.
// Code follows HTTP status semantics; Tag is the short error name.
type Error struct {
	Message string   `json:"message"`
	Tag     string   `json:"error"`
	Code    int      `json:"code"`
	Errors  []string `json:"errors,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// NotFound builds a 404 error. details become the errors list.
func NotFound(message string, details ...string) *Error {
	return newError(http.StatusNotFound, message, details)
}

// BadRequest builds a 400 error. details become the errors list.
func BadRequest(message string, details ...string) *Error {
	return newError(http.StatusBadRequest, message, details)
}

// Internal builds a 500 error with the given tag; an empty tag becomes
// "Internal Server Error".
func Internal(message, tag string) *Error {
	e := newError(http.StatusInternalServerError, message, nil)
	if tag != "" {
		e.Tag = tag
	}
	return e
}

func newError(code int, message string, details []string) *Error {
	if message == "" {
		message = unexpectedMessage
	}
	return &Error{
		Message: message,
		Tag:     http.StatusText(code),
		Code:    code,
		Errors:  details,
	}
}

// Normalize maps any error onto an *Error:
//   - an *Error anywhere in the chain passes through unchanged
//   - domain sentinels map to their code, keeping the message
//   - a Postgres error is a 500 carrying the server's message, tagged with its
//     SQLSTATE; wrapping context added by the store is dropped
//   - everything else is a 500 carrying the error message
//
// Returns nil for a nil error.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}

	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	if mapped := fromSentinel(err); mapped != nil {
		return mapped
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return Internal(pgErr.Error(), pgErr.Code)
	}
	return Internal(err.Error(), "")
}

func fromSentinel(err error) *Error {
	switch {
	case errors.Is(err, productdomain.ErrProductNotFound):
		return NotFound(err.Error())
	case errors.Is(err, productdomain.ErrInvalidProduct):
		return BadRequest(err.Error())
	default:
		return nil
	}
}

// IsCode reports whether err normalizes to the given code.
func IsCode(err error, code int) bool {
	n := Normalize(err)
	return n != nil && n.Code == code
}
