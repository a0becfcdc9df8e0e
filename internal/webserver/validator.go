package webserver

import (
	"github.com/go-playground/validator/v10"

	"github.com/talkincode/netmon/internal/domain"
)

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("dottedquad", func(fl validator.FieldLevel) bool {
		return domain.IsValidIP(fl.Field().String())
	})
	_ = v.RegisterValidation("devicetype", func(fl validator.FieldLevel) bool {
		return domain.DeviceType(fl.Field().String()).Valid()
	})
	return &Validator{validate: v}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
