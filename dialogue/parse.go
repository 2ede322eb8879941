package dialogue

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the DD.MM.YYYY layout used for input and display.
const DateLayout = "02.01.2006"

const amountPlaces = 2

// amounts must stay below 10^12 to fit NUMERIC(14,2).
var amountLimit = decimal.New(1, 12)

// ValidationError describes user input that could not be accepted.
type ValidationError struct {
	Field  string
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Input, e.Reason)
}

// Code is used as err_code in logs.
func (e *ValidationError) Code() string { return "VALIDATION" }

// ParseAmount reads a positive monetary amount. A comma is accepted as the
// decimal separator and the value is rounded half-up to two places.
func ParseAmount(text string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	if s == "" {
		return decimal.Zero, &ValidationError{Field: "amount", Input: text, Reason: "empty"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Input: text, Reason: "not a number"}
	}
	d = d.Round(amountPlaces)
	if !d.IsPositive() {
		return decimal.Zero, &ValidationError{Field: "amount", Input: text, Reason: "must be positive"}
	}
	if d.GreaterThanOrEqual(amountLimit) {
		return decimal.Zero, &ValidationError{Field: "amount", Input: text, Reason: "too large"}
	}
	return d, nil
}

// ParseDate reads a strict DD.MM.YYYY calendar date as midnight in loc.
func ParseDate(text string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(text), loc)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Input: text, Reason: "expected DD.MM.YYYY"}
	}
	return t, nil
}
