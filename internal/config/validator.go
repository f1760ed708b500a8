package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wesleyorama2/curly/internal/http"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Path    string
	Message string
}

// Error returns the error message
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("httpmethod", func(fl validator.FieldLevel) bool {
		return slices.Contains(http.SupportedMethods, strings.ToUpper(fl.Field().String()))
	})
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := parseDurationString(fl.Field().String())
		return err == nil && d >= 0
	})

	return v
}

// ValidateConfig checks the structure of a request file and returns every
// violation found, sorted by path.
func ValidateConfig(file *File) []ValidationError {
	err := newValidator().Struct(file)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Path: "config", Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		out = append(out, ValidationError{Path: path, Message: describe(fe)})
	}
	slices.SortFunc(out, func(a, b ValidationError) int { return strings.Compare(a.Path, b.Path) })
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("at least %s entry is required", fe.Param())
	case "oneof":
		return fmt.Sprintf("invalid value %v, must be one of: %s", fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "httpmethod":
		return fmt.Sprintf("invalid method: %v", fe.Value())
	case "duration":
		return fmt.Sprintf("invalid duration: %v", fe.Value())
	case "excluded_with":
		return "body and json cannot both be set"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// ValidateEnvironment validates that an environment exists
func ValidateEnvironment(file *File, envName string) error {
	if _, ok := file.Environments[envName]; !ok {
		return fmt.Errorf("environment not found: %s", envName)
	}
	return nil
}

// ValidateRequest validates that a request exists
func ValidateRequest(file *File, reqName string) error {
	if _, ok := file.Requests[reqName]; !ok {
		return fmt.Errorf("request not found: %s", reqName)
	}
	return nil
}
