package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

func DefaultMessage(field, tag, param string) string {
	field = lowerFirst(field)

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "datetime":
		return fmt.Sprintf("%s must be a date in %s format", field, param)
	case "boolean":
		return fmt.Sprintf("%s must be true or false", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// Messages turns a validator error into one message per failed field, dropping
// repeats. Errors that are not validation errors yield a single generic message.
func Messages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"Invalid request body"}
	}

	seen := make(map[string]bool, len(verrs))
	messages := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msg := DefaultMessage(e.Field(), e.Tag(), e.Param())
		if fieldMessages := CustomMessage(e.Field()); fieldMessages != nil {
			if custom, ok := fieldMessages[e.Tag()]; ok {
				msg = custom
			}
		}
		if !seen[msg] {
			seen[msg] = true
			messages = append(messages, msg)
		}
	}
	return messages
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
