// Package nonfungible tracks the cost basis of assets which are held whole,
// one item at a time. There is no matching: a disposal takes the whole cost
// basis accumulated since the item was acquired.
package nonfungible

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tsiemens/ukcgt/amount"
	"github.com/tsiemens/ukcgt/date"
	"github.com/tsiemens/ukcgt/util"
)

var ErrNotAcquired = errors.New("asset is not held")

type Acquire struct {
	Date      date.Date
	CostBasis amount.Money
}

type DisposeOf struct {
	Date     date.Date
	Proceeds amount.Money
}

type Asset struct {
	id         uuid.UUID
	currency   amount.Currency
	held       bool
	acquiredOn date.Date
	costBasis  amount.Money
	disposals  []DisposedOf
	version    int
	pending    []Event
}

func NewAsset(id uuid.UUID) *Asset {
	return &Asset{id: id}
}

func Rehydrate(id uuid.UUID, history []Event, version int) *Asset {
	a := NewAsset(id)
	for _, e := range history {
		a.apply(e)
	}
	a.version = version
	return a
}

func (a *Asset) AggregateID() uuid.UUID { return a.id }
func (a *Asset) Version() int           { return a.version }

func (a *Asset) ReleaseEvents() []Event {
	events := a.pending
	a.pending = nil
	return events
}

func (a *Asset) Currency() amount.Currency { return a.currency }
func (a *Asset) IsHeld() bool              { return a.held }

// Disposals returns the past disposals, oldest first.
func (a *Asset) Disposals() []DisposedOf {
	return append([]DisposedOf(nil), a.disposals...)
}

// CostBasis is the cost basis accumulated since the asset was acquired. It is
// zero when the asset is not held.
func (a *Asset) CostBasis() amount.Money { return a.costBasis }

func (a *Asset) checkCurrency(action string, d date.Date, m amount.Money) error {
	if a.currency != amount.NoCurrency && a.currency != m.Currency {
		return fmt.Errorf("%s on %s: %w", action, d,
			&amount.CurrencyMismatchError{Expected: a.currency, Actual: m.Currency})
	}
	return nil
}

// Acquire records the acquisition of the asset. Acquiring an asset already
// held adds to its cost basis, eg. costs of improvement.
func (a *Asset) Acquire(cmd Acquire) error {
	if err := a.checkCurrency("Acquisition", cmd.Date, cmd.CostBasis); err != nil {
		return err
	}
	if cmd.CostBasis.IsNegative() {
		return fmt.Errorf("Acquisition on %s has a negative cost basis (%s)", cmd.Date, cmd.CostBasis)
	}
	if a.held {
		if cmd.Date.Before(a.acquiredOn) {
			return fmt.Errorf("Cost basis increase on %s precedes the acquisition on %s",
				cmd.Date, a.acquiredOn)
		}
		a.recordThat(&CostBasisIncreased{Date: cmd.Date, CostBasisIncrease: cmd.CostBasis})
		return nil
	}
	a.recordThat(&Acquired{Date: cmd.Date, CostBasis: cmd.CostBasis})
	return nil
}

func (a *Asset) DisposeOf(cmd DisposeOf) error {
	if err := a.checkCurrency("Disposal", cmd.Date, cmd.Proceeds); err != nil {
		return err
	}
	if !a.held {
		return fmt.Errorf("Disposal on %s: %w", cmd.Date, ErrNotAcquired)
	}
	if cmd.Date.Before(a.acquiredOn) {
		return fmt.Errorf("Disposal on %s precedes the acquisition on %s", cmd.Date, a.acquiredOn)
	}
	a.recordThat(&DisposedOf{Date: cmd.Date, CostBasis: a.costBasis, Proceeds: cmd.Proceeds})
	return nil
}

func (a *Asset) recordThat(e Event) {
	a.apply(e)
	a.pending = append(a.pending, e)
}

func (a *Asset) apply(e Event) {
	switch ev := e.(type) {
	case *Acquired:
		a.currency = ev.CostBasis.Currency
		a.held = true
		a.acquiredOn = ev.Date
		a.costBasis = ev.CostBasis
	case *CostBasisIncreased:
		total, err := a.costBasis.Plus(ev.CostBasisIncrease)
		util.Assertf(err == nil, "%s: %v", a.id, err)
		a.costBasis = total
	case *DisposedOf:
		a.disposals = append(a.disposals, *ev)
		a.held = false
		a.acquiredOn = date.Date{}
		a.costBasis = a.costBasis.Zero()
	default:
		util.Assertf(false, "unknown non-fungible asset event %T", e)
	}
}
