package dialogue

import (
	"fmt"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Formatter renders amounts in one currency and dates in one time zone.
type Formatter struct {
	money    *money.Formatter
	fraction int32
	loc      *time.Location
}

// NewFormatter builds a formatter for an ISO 4217 currency code. Amounts are
// written with a space as thousands separator and a comma before the
// fraction, followed by the currency sign: "1 500,50 ₽".
func NewFormatter(currency string, loc *time.Location) (Formatter, error) {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return Formatter{}, fmt.Errorf("dialogue: unknown currency %q", currency)
	}
	if loc == nil {
		loc = time.UTC
	}
	return Formatter{
		money:    money.NewFormatter(cur.Fraction, ",", " ", cur.Grapheme, "1 $"),
		fraction: int32(cur.Fraction),
		loc:      loc,
	}, nil
}

// Location is the zone dates are parsed and shown in.
func (f Formatter) Location() *time.Location {
	if f.loc == nil {
		return time.UTC
	}
	return f.loc
}

// Amount formats d, rounding half-up to the currency fraction.
func (f Formatter) Amount(d decimal.Decimal) string {
	if f.money == nil {
		return d.StringFixed(amountPlaces)
	}
	minor := d.Shift(f.fraction).Round(0).IntPart()
	return f.money.Format(minor)
}

// Date formats t as DD.MM.YYYY in the formatter's zone.
func (f Formatter) Date(t time.Time) string {
	return t.In(f.Location()).Format(DateLayout)
}
