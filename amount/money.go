package amount

import (
	"encoding/json"

	"github.com/Rhymond/go-money"
)

// Money is a Quantity tagged with a currency (a fiat amount).
type Money struct {
	Amount   Quantity
	Currency Currency
}

func NewMoney(q Quantity, currency Currency) Money {
	return Money{Amount: q, Currency: currency}
}

// RequireMoney panics on a malformed amount. Meant for constants and tests.
func RequireMoney(value string, currency Currency) Money {
	return Money{Amount: RequireQuantity(value), Currency: currency}
}

func ZeroMoney(currency Currency) Money {
	return Money{Currency: currency}
}

// Zero returns a zero amount in the same currency.
func (m Money) Zero() Money {
	return ZeroMoney(m.Currency)
}

func (m Money) checkCurrency(m2 Money) error {
	if m.Currency != m2.Currency {
		return &CurrencyMismatchError{Expected: m.Currency, Actual: m2.Currency}
	}
	return nil
}

func (m Money) Plus(m2 Money) (Money, error) {
	if err := m.checkCurrency(m2); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Add(m2.Amount), Currency: m.Currency}, nil
}

func (m Money) Minus(m2 Money) (Money, error) {
	if err := m.checkCurrency(m2); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Sub(m2.Amount), Currency: m.Currency}, nil
}

func (m Money) MultipliedBy(q Quantity) Money {
	return Money{Amount: m.Amount.Mul(q), Currency: m.Currency}
}

func (m Money) DividedBy(q Quantity) (Money, error) {
	res, err := m.Amount.Div(q)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: res, Currency: m.Currency}, nil
}

func (m Money) Equal(m2 Money) bool {
	return m.Currency == m2.Currency && m.Amount.Equal(m2.Amount)
}

func (m Money) IsZero() bool     { return m.Amount.IsZero() }
func (m Money) IsPositive() bool { return m.Amount.IsPositive() }
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }

func (m Money) GreaterThan(m2 Money) (bool, error) {
	if err := m.checkCurrency(m2); err != nil {
		return false, err
	}
	return m.Amount.GreaterThan(m2.Amount), nil
}

func (m Money) LessThan(m2 Money) (bool, error) {
	if err := m.checkCurrency(m2); err != nil {
		return false, err
	}
	return m.Amount.LessThan(m2.Amount), nil
}

func (m Money) String() string {
	return m.Currency.String() + " " + m.Amount.String()
}

// Format renders the amount with the currency's symbol and minor units,
// eg. £1,234.50
func (m Money) Format() string {
	fraction := m.Currency.fraction()
	minor := m.Amount.Decimal().Round(int32(fraction)).Shift(int32(fraction))
	return money.New(minor.IntPart(), string(m.Currency)).Display()
}

type jsonMoney struct {
	Amount   Quantity `json:"amount"`
	Currency Currency `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonMoney{Amount: m.Amount, Currency: m.Currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var jm jsonMoney
	if err := json.Unmarshal(data, &jm); err != nil {
		return err
	}
	m.Amount = jm.Amount
	m.Currency = jm.Currency
	return nil
}
