package httputil

import (
	"github.com/go-playground/validator/v10"

	"github.com/certflow/certportal-backend/pkg/errors"
)

var validate = validator.New()

// Validate checks struct tags and converts failures into a validation error
// with one message per offending field.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	details := make(map[string]string)
	for _, fieldErr := range err.(validator.ValidationErrors) {
		details[fieldErr.Field()] = messageFor(fieldErr)
	}
	return errors.Validation(details)
}

func messageFor(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "invalid value"
	}
}

// RegisterCustomValidation registers a custom validation function
func RegisterCustomValidation(tag string, fn validator.Func) error {
	return validate.RegisterValidation(tag, fn)
}
