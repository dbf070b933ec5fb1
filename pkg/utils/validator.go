package utils

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// ValidateAmount validates a document amount
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("amount must be positive: %s", amount.String())
	}
	if amount.Exponent() < -2 {
		return fmt.Errorf("amount must have at most 2 decimal places: %s", amount.String())
	}
	return nil
}

// ValidateDocumentNumber validates an invoice or bill number
func ValidateDocumentNumber(number string) error {
	if number == "" {
		return fmt.Errorf("document number is required")
	}
	if len(number) > 100 {
		return fmt.Errorf("document number exceeds 100 characters: %s", number)
	}
	if controlChars.MatchString(number) {
		return fmt.Errorf("document number contains control characters")
	}
	return nil
}

// SanitizeString removes control characters from free-text input
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}
