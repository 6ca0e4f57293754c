package constants

// Field Length Limits
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxNameLength     = 100
	MaxPhoneLength    = 32
	MaxEmailLength    = 255
)

// Validation Patterns
const (
	EmailPattern        = `^[^\s@]+@[^\s@]+\.[^\s@]+$`
	PasswordSymbolChars = `!@#$%^&*(),.?":{}|<>`
)
