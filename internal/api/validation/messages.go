package validation

import (
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
)

// fieldMessages override the generic message for a field/tag pair
var fieldMessages = map[string]string{
	"fullName.min":      "Name is too short",
	"phone.min":         "Phone number is too short",
	"phone.max":         "Phone number is too long",
	"token.required":    "Anti-bot token missing",
	"companyName.min":   "Company name is required",
	"contactPerson.min": "Contact person is required",
	"message.min":       "Message is too short",
	"message.max":       "Message is too long",
	"email.email":       "Invalid email address",
}

func message(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}

	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return "Required"
	case "email":
		return "Invalid email address"
	case "http_url", "url":
		return "Invalid url"
	case "datetime":
		return "Invalid date, expected YYYY-MM-DD"
	case "salary_range":
		return "Maximum salary must not be below the minimum"
	case "min":
		if isString {
			return fmt.Sprintf("String must contain at least %s character(s)", fe.Param())
		}
		return fmt.Sprintf("Number must be greater than or equal to %s", fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("String must contain at most %s character(s)", fe.Param())
		}
		return fmt.Sprintf("Number must be less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("Invalid value (%s)", fe.Tag())
	}
}
