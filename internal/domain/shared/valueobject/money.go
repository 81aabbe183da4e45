package valueobject

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of minor-unit digits carried by every ledger amount.
// The ledger currency (KWD, BHD, OMR style) uses three decimal places.
const MoneyScale int32 = 3

// MaxIntegerDigits matches the DECIMAL(18,3) columns amounts are stored in
const MaxIntegerDigits = 15

// DefaultCurrency is the display currency of the ledger
const DefaultCurrency = "KWD"

// maxAmountLength bounds the raw input; trailing fractional zeros are tolerated up to it.
const maxAmountLength = 40

// amountPattern accepts plain decimal notation only. Exponents are rejected before
// decimal parsing so a short input can never expand into a huge coefficient.
var amountPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// maxAmount is the smallest magnitude that no longer fits MaxIntegerDigits
var maxAmount = decimal.New(1, MaxIntegerDigits)

var (
	// ErrEmptyAmount is returned when an amount string is blank
	ErrEmptyAmount = errors.New("amount cannot be empty")
	// ErrTooManyDecimals is returned when an amount has more than MoneyScale fractional digits
	ErrTooManyDecimals = fmt.Errorf("amount cannot have more than %d decimal places", MoneyScale)
	// ErrAmountTooLarge is returned when an amount has more than MaxIntegerDigits integer digits
	ErrAmountTooLarge = fmt.Errorf("amount cannot have more than %d integer digits", MaxIntegerDigits)
	// ErrMalformedAmount is returned for anything but plain decimal notation
	ErrMalformedAmount = errors.New("amount must be a plain decimal number")
)

// ParseMoney parses a decimal string into a ledger amount.
// Binary floating point never enters the conversion.
func ParseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}
	if len(s) > maxAmountLength || !amountPattern.MatchString(s) {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", truncateInput(s), ErrMalformedAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if err := ValidateScale(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// MustParseMoney parses an amount and panics on error. Intended for constants and tests.
func MustParseMoney(s string) decimal.Decimal {
	d, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ValidateScale rejects amounts with more precision or more integer digits than the ledger stores
func ValidateScale(d decimal.Decimal) error {
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		return ErrAmountTooLarge
	}
	if d.Exponent() >= -MoneyScale {
		return nil
	}
	if !d.Equal(d.Truncate(MoneyScale)) {
		return ErrTooManyDecimals
	}
	return nil
}

func truncateInput(s string) string {
	if len(s) > 16 {
		return s[:16] + "..."
	}
	return s
}

// RoundMoney rounds half away from zero to MoneyScale places
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// FormatMoney renders an amount with exactly MoneyScale fractional digits
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyScale)
}

// ClampZero returns d, or zero when d is negative
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// SumMoney adds amounts
func SumMoney(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
