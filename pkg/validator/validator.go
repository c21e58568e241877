package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/errrpc"
)

// ValidationFailedMessage is the message of every payload validation error.
const ValidationFailedMessage = "Validation failed"

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]

		// ignore unexported or explicitly ignored
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// notblank rejects strings that are empty after trimming whitespace.
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() != reflect.String {
			return true
		}
		return strings.TrimSpace(f.String()) != ""
	})
}

// Validate runs struct-level validation using go-playground/validator tags.
func Validate(s any) error {
	return validate.Struct(s)
}

// FormatValidationErrors converts validator.ValidationErrors into a map of
// field name → human-readable message.
func FormatValidationErrors(err error) map[string]string {
	errs := make(map[string]string)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return errs
	}
	for _, e := range ve {
		errs[e.Field()] = formatFieldError(e)
	}
	return errs
}

func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Minimum length is %s", e.Param())
	case "max":
		return fmt.Sprintf("Maximum length is %s", e.Param())
	case "numeric":
		return "Must be a numeric value"
	case "gt":
		return fmt.Sprintf("Must be greater than %s", e.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", e.Param())
	case "notblank":
		return "Must not be blank"
	default:
		return fmt.Sprintf("Validation failed on '%s'", e.Tag())
	}
}

// DecodePayload decodes a message payload into T, rejecting fields T does not
// declare, and validates the result. An empty payload decodes as null.
// Failures are returned as a 400 *errrpc.Error whose errors list reads
// "<field>: <problem>", sorted by field.
func DecodePayload[T any](payload []byte) (*T, error) {
	var req T
	if len(bytes.TrimSpace(payload)) == 0 {
		payload = []byte("null")
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, errrpc.BadRequest(ValidationFailedMessage, describeDecodeError(err))
	}
	if err := Validate(&req); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			// T is not a struct (ids, arrays); there is nothing to validate.
			return &req, nil
		}
		return nil, errrpc.BadRequest(ValidationFailedMessage, flatten(FormatValidationErrors(err))...)
	}
	return &req, nil
}

func flatten(fields map[string]string) []string {
	out := make([]string, 0, len(fields))
	for field, msg := range fields {
		out = append(out, field+": "+msg)
	}
	sort.Strings(out)
	return out
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%s: must be a %s", typeErr.Field, typeErr.Type.String())
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return "payload: invalid JSON"
	}
	return strings.TrimPrefix(err.Error(), "json: ")
}
