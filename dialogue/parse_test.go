package dialogue

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1500,50", "1500.5"},
		{"1500.50", "1500.5"},
		{" 200 ", "200"},
		{"0,01", "0.01"},
		{"10.005", "10.01"},
		{"999999999999.99", "999999999999.99"},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if err != nil {
			t.Fatalf("ParseAmount(%q): %v", tt.in, err)
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Fatalf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseAmountSeparatorsAgree(t *testing.T) {
	for _, pair := range [][2]string{{"1,5", "1.5"}, {"0,99", "0.99"}, {"12345,67", "12345.67"}} {
		a, errA := ParseAmount(pair[0])
		b, errB := ParseAmount(pair[1])
		if errA != nil || errB != nil {
			t.Fatalf("parse %v: %v %v", pair, errA, errB)
		}
		if !a.Equal(b) {
			t.Fatalf("%q = %s, %q = %s", pair[0], a, pair[1], b)
		}
	}
}

func TestParseAmountRejects(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "0", "-5", "0,001", "1,500,50", "1e12", "1000000000000", LabelCancel} {
		_, err := ParseAmount(in)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("ParseAmount(%q) err = %v, want ValidationError", in, err)
		}
		if verr.Code() != "VALIDATION" || verr.Field != "amount" {
			t.Fatalf("unexpected error %+v", verr)
		}
	}
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("MSK", 3*3600)
	got, err := ParseDate(" 25.02.2024 ", loc)
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	want := time.Date(2024, 2, 25, 0, 0, 0, 0, loc)
	if !got.Equal(want) || got.Location() != loc {
		t.Fatalf("ParseDate = %v, want %v", got, want)
	}

	leap, err := ParseDate("29.02.2024", loc)
	if err != nil || leap.Day() != 29 {
		t.Fatalf("leap day: %v %v", leap, err)
	}
}

func TestParseDateRejects(t *testing.T) {
	for _, in := range []string{"", "25.2.2024", "5.02.2024", "25.02.24", "2024-02-25", "31.02.2024", "29.02.2023", "25.02.20245", "завтра"} {
		if _, err := ParseDate(in, time.UTC); err == nil {
			t.Fatalf("ParseDate(%q) succeeded", in)
		}
	}
}
