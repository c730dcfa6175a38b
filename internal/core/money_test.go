package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"-4.50", "-4.5", true},
		{"+12.00", "12", true},
		{"$1,234.56", "1234.56", true},
		{"(12.00)", "-12", true},
		{"12,34", "12.34", true},
		{"1,234", "1234", true},
		{" 2.50 ", "2.5", true},
		{"€ 3.10", "3.1", true},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseAmountOrZero(t *testing.T) {
	got, err := ParseAmountOrZero("  ")
	if err != nil || !got.IsZero() {
		t.Fatalf("expected zero, got %s (err=%v)", got, err)
	}
	if _, err := ParseAmountOrZero("x"); err == nil {
		t.Fatalf("expected error for garbage")
	}
}

func TestCentsRoundTrip(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
	}{
		{"4.50", 450},
		{"-4.50", -450},
		{"15.99", 1599},
		{"1.005", 101},
		{"-1.005", -101},
		{"0", 0},
	}
	for _, tc := range cases {
		d := decimal.RequireFromString(tc.in)
		if got := ToCents(d); got != tc.cents {
			t.Fatalf("ToCents(%s) = %d, want %d", tc.in, got, tc.cents)
		}
		if !FromCents(tc.cents).Equal(RoundCents(d)) {
			t.Fatalf("FromCents(%d) = %s, want %s", tc.cents, FromCents(tc.cents), RoundCents(d))
		}
	}
}
