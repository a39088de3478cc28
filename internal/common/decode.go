package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator. Field names in errors use the json tag.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// FieldError describes one failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// DecodeJSON decodes the request body into dst and validates it. Fields dst
// does not declare are rejected. Failures are returned as 400 AppErrors
// carrying per-field details where available.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return NewAppError("BAD_REQUEST", "request body is required", http.StatusBadRequest, err)
		}
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var sizeErr *http.MaxBytesError
		switch {
		case errors.As(err, &sizeErr):
			return NewAppError("PAYLOAD_TOO_LARGE", "request body too large", http.StatusRequestEntityTooLarge, err)
		case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, io.ErrUnexpectedEOF):
			return NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, err)
		}
		if field, ok := unknownField(err); ok {
			appErr := NewAppError("INVALID_INPUT", fmt.Sprintf("unknown field %q", field), http.StatusBadRequest, err)
			appErr.Details = []FieldError{{Field: field, Rule: "unknown"}}
			return appErr
		}
		return BadRequest(err)
	}
	return ValidateStruct(dst)
}

// ValidateStruct runs the shared validator on v.
func ValidateStruct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return BadRequest(err)
	}
	details := make([]FieldError, 0, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
		names = append(names, fe.Field())
	}
	appErr := NewAppError("INVALID_INPUT", fmt.Sprintf("invalid fields: %s", strings.Join(names, ", ")), http.StatusBadRequest, err)
	appErr.Details = details
	return appErr
}

// unknownField extracts the name from encoding/json's DisallowUnknownFields
// error, which has no exported type.
func unknownField(err error) (string, bool) {
	const prefix = "json: unknown field "
	msg := err.Error()
	if !strings.HasPrefix(msg, prefix) {
		return "", false
	}
	return strings.Trim(strings.TrimPrefix(msg, prefix), `"`), true
}
