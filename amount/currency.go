package amount

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
)

type Currency string

const (
	GBP        Currency = "GBP"
	NoCurrency Currency = ""
)

// ParseCurrency normalizes an ISO 4217 code and rejects unknown ones.
func ParseCurrency(code string) (Currency, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return NoCurrency, fmt.Errorf("Missing currency")
	}
	if money.GetCurrency(normalized) == nil {
		return NoCurrency, fmt.Errorf("Unknown currency %q", code)
	}
	return Currency(normalized), nil
}

func (c Currency) String() string {
	return string(c)
}

// fraction returns the number of minor unit digits, defaulting to 2 for
// codes go-money does not know about.
func (c Currency) fraction() int {
	if cur := money.GetCurrency(string(c)); cur != nil {
		return cur.Fraction
	}
	return 2
}

// CurrencyMismatchError is returned by operations mixing two currencies.
type CurrencyMismatchError struct {
	Expected Currency
	Actual   Currency
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("Currency mismatch: expected %s, got %s", e.Expected, e.Actual)
}
