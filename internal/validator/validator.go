package validator

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Seat labels are a row letter followed by a 1-based seat number, e.g. "A1".
var seatLabelRgx = regexp.MustCompile(`^[A-Z][1-9][0-9]?$`)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterValidation("seat_label", validateSeatLabel)

	return validator
}

func validateSeatLabel(fl validator.FieldLevel) bool {
	return seatLabelRgx.MatchString(fl.Field().String())
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", err.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	case "seat_label":
		return "must be a seat label like A1 or C12"
	default:
		return "is invalid"
	}
}
