package amount

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Division results are rounded to this many fractional digits.
const DivisionPrecision int32 = 32

var ErrDivisionByZero = errors.New("division by zero")

var ZeroQuantity = Quantity{}

// Quantity is an exact decimal. The zero value is 0.
type Quantity struct {
	value decimal.Decimal
}

func NewQuantity(value decimal.Decimal) Quantity {
	return Quantity{value: value}
}

func NewQuantityFromInt(value int64) Quantity {
	return Quantity{value: decimal.NewFromInt(value)}
}

func NewQuantityFromString(value string) (Quantity, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return ZeroQuantity, fmt.Errorf("Invalid quantity %q: %w", value, err)
	}
	return Quantity{value: d}, nil
}

// RequireQuantity panics if value is not a valid decimal. Meant for constants
// and tests.
func RequireQuantity(value string) Quantity {
	return Quantity{value: decimal.RequireFromString(value)}
}

func MinQuantity(q0 Quantity, qs ...Quantity) Quantity {
	min := q0
	for _, q := range qs {
		if q.LessThan(min) {
			min = q
		}
	}
	return min
}

func MaxQuantity(q0 Quantity, qs ...Quantity) Quantity {
	max := q0
	for _, q := range qs {
		if q.GreaterThan(max) {
			max = q
		}
	}
	return max
}

func (q Quantity) Decimal() decimal.Decimal { return q.value }

func (q Quantity) Add(q2 Quantity) Quantity { return Quantity{value: q.value.Add(q2.value)} }
func (q Quantity) Sub(q2 Quantity) Quantity { return Quantity{value: q.value.Sub(q2.value)} }
func (q Quantity) Mul(q2 Quantity) Quantity { return Quantity{value: q.value.Mul(q2.value)} }
func (q Quantity) Neg() Quantity            { return Quantity{value: q.value.Neg()} }

func (q Quantity) Div(q2 Quantity) (Quantity, error) {
	if q2.IsZero() {
		return ZeroQuantity, fmt.Errorf("Cannot divide %s by %s: %w", q, q2, ErrDivisionByZero)
	}
	return Quantity{value: q.value.DivRound(q2.value, DivisionPrecision)}, nil
}

func (q Quantity) Equal(q2 Quantity) bool              { return q.value.Equal(q2.value) }
func (q Quantity) GreaterThan(q2 Quantity) bool        { return q.value.GreaterThan(q2.value) }
func (q Quantity) GreaterThanOrEqual(q2 Quantity) bool { return q.value.GreaterThanOrEqual(q2.value) }
func (q Quantity) LessThan(q2 Quantity) bool           { return q.value.LessThan(q2.value) }
func (q Quantity) LessThanOrEqual(q2 Quantity) bool    { return q.value.LessThanOrEqual(q2.value) }
func (q Quantity) IsZero() bool                        { return q.value.IsZero() }
func (q Quantity) IsPositive() bool                    { return q.value.IsPositive() }
func (q Quantity) IsNegative() bool                    { return q.value.IsNegative() }

func (q Quantity) String() string { return q.value.String() }

func (q Quantity) StringFixed(places int32) string { return q.value.StringFixed(places) }

// Quantities are persisted as JSON strings so no precision is lost.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return q.value.MarshalJSON()
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	return q.value.UnmarshalJSON(data)
}
