// Package validator wires go-playground/validator into gin binding and
// turns its errors into per-field messages.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config lists the custom tags and types to register on an engine.
type Config struct {
	Tags      map[string]validator.Func
	TypeFuncs map[reflect.Type]validator.CustomTypeFunc
	Messages  map[string]string
}

// Register installs the custom tags and reports fields by their json name.
func Register(v *validator.Validate, cfg Config) error {
	v.RegisterTagNameFunc(jsonName)
	for tag, fn := range cfg.Tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	for typ, fn := range cfg.TypeFuncs {
		v.RegisterCustomTypeFunc(fn, reflect.New(typ).Elem().Interface())
	}
	return nil
}

func jsonName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

var defaultMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email",
	"url":      "must be a valid URL",
	"uuid":     "must be a valid UUID",
}

// FieldErrors maps each failed field to a message. It returns nil when err
// is not a validation error.
func FieldErrors(err error, messages map[string]string) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe, messages)
	}
	return fields
}

func message(fe validator.FieldError, messages map[string]string) string {
	if msg, ok := messages[fe.Tag()]; ok {
		return msg
	}
	if msg, ok := defaultMessages[fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "failed " + fe.Tag() + " validation"
}
