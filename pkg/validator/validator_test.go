package validator

import (
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type amount struct{ cents int }

type request struct {
	Email  string `json:"email" validate:"required,email"`
	Name   string `json:"name" validate:"max=5"`
	Color  string `json:"color" validate:"color"`
	Amount amount `json:"amount" validate:"positive"`
}

func TestFieldErrors(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v, Config{
		Tags: map[string]validator.Func{
			"color":    func(fl validator.FieldLevel) bool { return fl.Field().String() == "red" },
			"positive": func(fl validator.FieldLevel) bool { return fl.Field().Int() > 0 },
		},
		TypeFuncs: map[reflect.Type]validator.CustomTypeFunc{
			reflect.TypeOf(amount{}): func(f reflect.Value) interface{} { return f.Interface().(amount).cents },
		},
	}))

	err := v.Struct(request{Email: "nope", Name: "toolong", Color: "blue", Amount: amount{cents: -1}})
	fields := FieldErrors(err, map[string]string{"color": "must be red"})

	assert.Equal(t, map[string]string{
		"email":  "must be a valid email",
		"name":   "must be at most 5",
		"color":  "must be red",
		"amount": "failed positive validation",
	}, fields)

	assert.Nil(t, FieldErrors(assert.AnError, nil))
	assert.NoError(t, v.Struct(request{Email: "a@b.co", Color: "red", Amount: amount{cents: 1}}))
}
