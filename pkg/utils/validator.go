package utils

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

var currencyCodeRegex = regexp.MustCompile(`^[A-Za-z]{3}$`)

// ValidateCurrencyCode validates an ISO 4217 style three-letter currency code
func ValidateCurrencyCode(code string) error {
	if !currencyCodeRegex.MatchString(code) {
		return fmt.Errorf("invalid currency code: %q", code)
	}
	return nil
}

// ValidateAmount validates an expense amount
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("amount must be positive: %s", amount.String())
	}
	if amount.Exponent() < -2 {
		return fmt.Errorf("amount has more than 2 decimal places: %s", amount.String())
	}
	return nil
}

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// SanitizeString removes control characters
func SanitizeString(s string) string {
	return regexp.MustCompile(`[\x00-\x1f\x7f]`).ReplaceAllString(s, "")
}
