package validation

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "salespulse/internal/errors"
)

// StructValidator validates configuration structs using struct tags and
// reports every violation in a single ConfigurationError.
type StructValidator struct {
	validate *validator.Validate
}

// NewStructValidator creates a validator that names fields by the given
// struct tag, such as "json" or "yaml".
func NewStructValidator(nameTag string) *StructValidator {
	v := validator.New()

	v.RegisterValidation("isodate", isISODate)

	// Use serialized names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get(nameTag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &StructValidator{validate: v}
}

// RegisterRule adds a named rule for string-kinded fields.
func (s *StructValidator) RegisterRule(tag string, valid func(value string) bool) error {
	return s.validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return valid(fl.Field().String())
	})
}

// Validate checks v against its tags. A nil return means v is valid.
func (s *StructValidator) Validate(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !apperrors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %T: %w", v, err)
	}

	cfgErr := &apperrors.ConfigurationError{}
	for _, fe := range fieldErrs {
		cfgErr.Add(fieldPath(fe), "%s", formatValidationError(fe))
	}
	return cfgErr
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if err.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at least %s entries", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "isodate":
		return fmt.Sprintf("%s must be a YYYY-MM-DD date", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation (value %v)", field, err.Tag(), err.Value())
	}
}

// isISODate accepts empty values and calendar dates.
func isISODate(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := time.Parse(time.DateOnly, value)
	return err == nil
}
