// Package validation provides struct validation using go-playground/validator v10.
// It holds a thread-safe singleton validator and turns the first failing field
// into a *generic.ValidationError, so handlers and config share one error shape.
//
// Field names in errors are the JSON (or koanf) tag names, not Go field names:
//
//	type createPlayerRequest struct {
//	    Name string `json:"name" validate:"required,max=100"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    // err.Field == "name"
//	}
//
// Custom tags:
//   - day: a YYYY-MM-DD calendar date accepted by generic.ParseDay
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/warp/repboard/generic"
)

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// GetValidator returns the singleton validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(tagName)
		// Registration only fails on an empty tag or nil func.
		_ = validate.RegisterValidation("day", validateDay)
	})
	return validate
}

// tagName prefers the json name, then koanf, then the Go field name.
func tagName(fld reflect.StructField) string {
	for _, key := range []string{"json", "koanf"} {
		name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

func validateDay(fl validator.FieldLevel) bool {
	_, err := generic.ParseDay(fl.Field().String())
	return err == nil
}

// ValidateStruct validates s. It returns nil or a *generic.ValidationError
// describing the first failing field.
func ValidateStruct(s any) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return &generic.ValidationError{Field: "request", Message: err.Error()}
	}
	fe := validationErrs[0]
	return &generic.ValidationError{Field: fieldPath(fe), Message: translateError(fe)}
}

// fieldPath drops the top-level struct name from the namespace, so nested
// config fields read "server.port".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// errorMessageTemplates maps validation tags to message templates.
var errorMessageTemplates = map[string]string{
	"required": "%s is required",
	"day":      "%s must be a date in YYYY-MM-DD format",
	"url":      "%s must be a valid URL",
	"hostname": "%s must be a valid hostname",
}

// errorMessageWithParam maps validation tags to templates that include param.
var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
	"lt":    "%s must be less than %s",
}

func translateError(fe validator.FieldError) string {
	field := fe.Field()
	if template, ok := errorMessageTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(template, field)
	}
	if template, ok := errorMessageWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(template, field, fe.Param())
	}

	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
