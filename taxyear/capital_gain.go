package taxyear

import (
	"github.com/tsiemens/ukcgt/amount"
)

// CapitalGain pairs a cost basis with the proceeds it is set against.
type CapitalGain struct {
	CostBasis amount.Money `json:"cost_basis"`
	Proceeds  amount.Money `json:"proceeds"`
}

func ZeroCapitalGain(currency amount.Currency) CapitalGain {
	return CapitalGain{CostBasis: amount.ZeroMoney(currency), Proceeds: amount.ZeroMoney(currency)}
}

func (g CapitalGain) Currency() amount.Currency {
	return g.Proceeds.Currency
}

func (g CapitalGain) check() error {
	if g.CostBasis.Currency != g.Proceeds.Currency {
		return &amount.CurrencyMismatchError{Expected: g.Proceeds.Currency, Actual: g.CostBasis.Currency}
	}
	return nil
}

// Difference is the gain, or a loss when negative.
func (g CapitalGain) Difference() (amount.Money, error) {
	return g.Proceeds.Minus(g.CostBasis)
}

func (g CapitalGain) Plus(o CapitalGain) (CapitalGain, error) {
	costBasis, err := g.CostBasis.Plus(o.CostBasis)
	if err != nil {
		return CapitalGain{}, err
	}
	proceeds, err := g.Proceeds.Plus(o.Proceeds)
	if err != nil {
		return CapitalGain{}, err
	}
	return CapitalGain{CostBasis: costBasis, Proceeds: proceeds}, nil
}

func (g CapitalGain) Minus(o CapitalGain) (CapitalGain, error) {
	return g.Plus(CapitalGain{
		CostBasis: o.CostBasis.MultipliedBy(amount.NewQuantityFromInt(-1)),
		Proceeds:  o.Proceeds.MultipliedBy(amount.NewQuantityFromInt(-1)),
	})
}
