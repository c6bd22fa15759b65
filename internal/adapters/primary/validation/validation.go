package validation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

// Validator validates request data
type Validator struct {
	errors *apperrors.ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		errors: apperrors.NewValidationErrors(),
	}
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return v.errors.HasErrors()
}

// Errors returns the validation errors
func (v *Validator) Errors() *apperrors.ValidationErrors {
	return v.errors
}

// Err returns the collected errors, or nil when there are none.
func (v *Validator) Err() error {
	if v.HasErrors() {
		return v.errors
	}
	return nil
}

// Required validates that a string is not empty
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.errors.Add(field, "This field is required")
	}
	return v
}

// MaxLength validates maximum string length
func (v *Validator) MaxLength(field, value string, max int) *Validator {
	if len(value) > max {
		v.errors.Add(field, "Must be at most "+strconv.Itoa(max)+" characters")
	}
	return v
}

// Email validates email format
func (v *Validator) Email(field, value string) *Validator {
	if value != "" && !emailRegex.MatchString(strings.TrimSpace(value)) {
		v.errors.Add(field, "Must be a valid email address")
	}
	return v
}

// Range validates integer is within range
func (v *Validator) Range(field string, value, min, max int) *Validator {
	if value < min || value > max {
		v.errors.Add(field, "Must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max))
	}
	return v
}

// OneOf validates value is one of the allowed values
func OneOf[T ~string](v *Validator, field string, value T, allowed []T) *Validator {
	if value == "" || slices.Contains(allowed, value) {
		return v
	}

	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	v.errors.Add(field, "Must be one of: "+strings.Join(names, ", "))
	return v
}

// Custom adds a custom validation
func (v *Validator) Custom(field string, valid bool, message string) *Validator {
	if !valid {
		v.errors.Add(field, message)
	}
	return v
}

// Validatable is implemented by request bodies that check themselves.
type Validatable interface {
	Validate() error
}

// DecodeAndValidate decodes a JSON request body into T and, when *T is
// Validatable, validates it.
func DecodeAndValidate[T any](r *http.Request) (*T, error) {
	var req T

	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewBadRequestError(err, "Request body is required")
		}
		return nil, apperrors.NewBadRequestError(err, "Invalid request body")
	}

	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return &req, nil
}

// PaginationParams holds pagination parameters
type PaginationParams struct {
	Limit  int
	Offset int
}

// ParsePagination extracts limit/offset. A missing limit means "everything",
// which is what the list UI asks for; an explicit limit is capped at maxLimit.
func ParsePagination(r *http.Request, maxLimit int, v *Validator) PaginationParams {
	var params PaginationParams

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		switch {
		case err != nil || limit < 0:
			v.Custom("limit", false, "limit must be a non-negative integer")
		case limit > maxLimit:
			params.Limit = maxLimit
		default:
			params.Limit = limit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			v.Custom("offset", false, "offset must be a non-negative integer")
		} else {
			params.Offset = offset
		}
	}

	return params
}

// ParseIntQueryParam parses an optional integer query parameter, recording a
// validation error on malformed input.
func ParseIntQueryParam(r *http.Request, key string, defaultValue int, v *Validator) int {
	valueStr := strings.TrimSpace(r.URL.Query().Get(key))
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		v.Custom(key, false, key+" must be an integer")
		return defaultValue
	}

	return value
}

// ParseDateQueryParam parses an optional YYYY-MM-DD query parameter. The
// zero Date means the parameter was absent.
func ParseDateQueryParam(r *http.Request, key string, v *Validator) domain.Date {
	valueStr := strings.TrimSpace(r.URL.Query().Get(key))
	if valueStr == "" {
		return domain.Date{}
	}

	d, err := domain.ParseDate(valueStr)
	if err != nil {
		v.Custom(key, false, key+" must be a date in YYYY-MM-DD format")
		return domain.Date{}
	}
	return d
}

// ParseID parses a positive int64 path parameter.
func ParseID(field, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		v := NewValidator()
		v.Custom(field, false, "Invalid "+field)
		return 0, v.Errors()
	}
	return id, nil
}
