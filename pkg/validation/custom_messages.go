package validation

var customValidationMessages = map[string]map[string]string{
	"email": {
		"required": "Email and password are required",
		"email":    "Invalid email format",
	},
	"password": {
		"required": "Email and password are required",
	},
	"publicToken": {
		"required": "Public token is required",
	},
}

// CustomMessage returns the per-tag overrides for a JSON field name, or nil.
func CustomMessage(field string) map[string]string {
	return customValidationMessages[field]
}
