package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"kinship/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator with the custom "username",
// "password" and "kemail" tags registered. Field names in errors use the
// json tag.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		mustRegister(v, "username", ValidateUsername)
		mustRegister(v, "password", ValidatePassword)
		mustRegister(v, "kemail", ValidateEmail)
		instance = v
	})
	return instance
}

func mustRegister(v *validator.Validate, tag string, rule func(string) error) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return rule(fl.Field().String()) == nil
	})
	if err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Struct validates v and returns a VALIDATION_ERROR AppError describing the
// first failing field, or nil.
func Struct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return models.NewValidationError(err.Error())
	}
	return models.NewValidationError(describe(fieldErrs[0], reflect.TypeOf(v)))
}

// jsonName maps a Go field name of t to its json name.
func jsonName(t reflect.Type, goName string) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return goName
	}
	f, ok := t.FieldByName(goName)
	if !ok {
		return goName
	}
	if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
		return name
	}
	return goName
}

func describe(fe validator.FieldError, t reflect.Type) string {
	field := fe.Field()
	value, _ := fe.Value().(string)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_without":
		return field + " or " + jsonName(t, fe.Param()) + " required"
	case "email":
		return "invalid email format"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "url":
		return field + " must be a valid URL"
	case "username":
		return ValidateUsername(value).Error()
	case "password":
		return ValidatePassword(value).Error()
	case "kemail":
		return ValidateEmail(value).Error()
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
