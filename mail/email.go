package mail

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var emailValidator = validator.New()

// IsValidEmail reports whether s is a syntactically valid email address.
func IsValidEmail(s string) bool {
	if strings.TrimSpace(s) != s {
		return false
	}
	return emailValidator.Var(s, "required,email") == nil
}

func domainOf(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 {
		return addr[i+1:]
	}
	return "localhost"
}
