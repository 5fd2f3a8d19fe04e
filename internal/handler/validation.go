package handler

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

var validationMessages = map[string]string{
	"clinic_role":        "must be one of staff, admin, doctor",
	"gender":             "must be one of male, female, other",
	"payment_method":     "must be one of cash, medical_aid, both",
	"appointment_status": "must be one of scheduled, confirmed, in_progress, completed, cancelled",
	"money":              "must be between 0 and 99999999.99 with at most two decimals",
}

// RegisterValidators adds the clinic's enum and money tags to gin's binding
// validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*playground.Validate)
	if !ok {
		return nil
	}
	return validator.Register(v, validator.Config{
		Tags: map[string]playground.Func{
			"clinic_role": func(fl playground.FieldLevel) bool {
				_, err := model.ParseRole(fl.Field().String())
				return err == nil
			},
			"gender": func(fl playground.FieldLevel) bool {
				_, err := model.ParseGender(fl.Field().String())
				return err == nil
			},
			"payment_method": func(fl playground.FieldLevel) bool {
				_, err := model.ParsePaymentMethod(fl.Field().String())
				return err == nil
			},
			"appointment_status": func(fl playground.FieldLevel) bool {
				_, err := model.ParseAppointmentStatus(fl.Field().String())
				return err == nil
			},
			"money": func(fl playground.FieldLevel) bool {
				d, err := decimal.NewFromString(fl.Field().String())
				return err == nil && model.ValidAmount(d)
			},
		},
		TypeFuncs: map[reflect.Type]playground.CustomTypeFunc{
			reflect.TypeOf(decimal.Decimal{}): func(f reflect.Value) interface{} {
				if d, ok := f.Interface().(decimal.Decimal); ok {
					return d.String()
				}
				return nil
			},
		},
	})
}
