package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/nimbuswolf/finance-api/internal/constants"
)

// PasswordProblems lists every strength rule password breaks. An empty result means it is acceptable.
func PasswordProblems(password string) []string {
	var problems []string

	if len(password) < constants.MinPasswordLength {
		problems = append(problems, fmt.Sprintf("Password must be at least %d characters long", constants.MinPasswordLength))
	}

	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(constants.PasswordSymbolChars, r):
			symbol = true
		}
	}

	if !lower {
		problems = append(problems, "Password must contain at least one lowercase letter")
	}
	if !upper {
		problems = append(problems, "Password must contain at least one uppercase letter")
	}
	if !digit {
		problems = append(problems, "Password must contain at least one number")
	}
	if !symbol {
		problems = append(problems, "Password must contain at least one special character")
	}
	return problems
}
