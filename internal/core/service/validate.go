package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rl1809/supply-ledger/internal/core/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check validates in and returns the failures keyed by json field name. The
// result is never nil so callers can append their own checks before OrNil.
func check(in any) *domain.ValidationError {
	verr := domain.NewValidationError()
	err := validate.Struct(in)
	if err == nil {
		return verr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("_", err.Error())
		return verr
	}
	for _, fe := range fieldErrs {
		field, msg := message(fe)
		verr.Add(field, msg)
	}
	return verr
}

func label(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

func message(fe validator.FieldError) (string, string) {
	field := fe.Field()
	name := label(field)

	switch fe.Tag() {
	case "required":
		return field, fmt.Sprintf("The %s field is required.", name)
	case "email":
		return field, fmt.Sprintf("The %s must be a valid email address.", name)
	case "oneof":
		return field, fmt.Sprintf("The selected %s is invalid.", name)
	case "eqfield":
		// password_confirmation failures are reported against the confirmed field
		target := strings.TrimSuffix(field, "_confirmation")
		return target, fmt.Sprintf("The %s confirmation does not match.", label(target))
	case "max":
		if fe.Kind() == reflect.String {
			return field, fmt.Sprintf("The %s must not be greater than %s characters.", name, fe.Param())
		}
		return field, fmt.Sprintf("The %s must not be greater than %s.", name, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			if fe.Param() == "1" {
				return field, fmt.Sprintf("The %s field must not be empty.", name)
			}
			return field, fmt.Sprintf("The %s must be at least %s characters.", name, fe.Param())
		}
		return field, fmt.Sprintf("The %s must be at least %s.", name, fe.Param())
	case "gte":
		return field, fmt.Sprintf("The %s must be at least %s.", name, fe.Param())
	case "gt":
		return field, fmt.Sprintf("The %s must be greater than %s.", name, fe.Param())
	}
	return field, fmt.Sprintf("The %s is invalid.", name)
}
