// Package validation contains the declarative field schema and the custom validation functions used to check user input.
package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// phonePattern accepts an optional +91 country prefix, optionally followed by a dash or space, and exactly 10 digits.
var phonePattern = regexp.MustCompile(`^(?:\+91[-\s]?)?[0-9]{10}$`)

// PhoneValidator is a validation function that checks the field value is a phone number.
// It returns true for ten digits with an optional country prefix, and false otherwise.
func PhoneValidator(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}

// FieldValidator is a validation function that checks if the field value is blank.
// It returns true if the field value has a non-space character, and false otherwise.
func FieldValidator(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// newValidator returns a validator with the custom tags registered.
func newValidator() (*validator.Validate, error) {
	v := validator.New()
	if err := v.RegisterValidation("phone", validator.Func(func(fl validator.FieldLevel) bool {
		return PhoneValidator(fl)
	})); err != nil {
		return nil, err
	}
	if err := v.RegisterValidation("notblank", validator.Func(func(fl validator.FieldLevel) bool {
		return FieldValidator(fl)
	})); err != nil {
		return nil, err
	}
	return v, nil
}
