// Package taxyear accumulates the capital gains of disposals per UK tax year.
//
// A TaxYear aggregate is shared by every asset, so it is written from several
// goroutines at once; the event store's version check and the repository's
// retry keep its totals consistent.
package taxyear

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/tsiemens/ukcgt/amount"
	"github.com/tsiemens/ukcgt/asset"
	"github.com/tsiemens/ukcgt/date"
	"github.com/tsiemens/ukcgt/util"
)

// IDOf is the aggregate id of a tax year.
func IDOf(year date.TaxYear) uuid.UUID {
	return asset.NameID("tax-year", year.String())
}

type UpdateCapitalGain struct {
	AssetID     uuid.UUID
	Date        date.Date
	CapitalGain CapitalGain
}

type RevertCapitalGain UpdateCapitalGain

// TaxYear holds the totals per currency, since assets are not converted.
type TaxYear struct {
	id        uuid.UUID
	gains     map[amount.Currency]CapitalGain
	disposals map[amount.Currency]int
	version   int
	pending   []Event
}

func NewTaxYear(id uuid.UUID) *TaxYear {
	return &TaxYear{
		id:        id,
		gains:     make(map[amount.Currency]CapitalGain),
		disposals: make(map[amount.Currency]int),
	}
}

func Rehydrate(id uuid.UUID, history []Event, version int) *TaxYear {
	y := NewTaxYear(id)
	for _, e := range history {
		y.apply(e)
	}
	y.version = version
	return y
}

func (y *TaxYear) AggregateID() uuid.UUID { return y.id }
func (y *TaxYear) Version() int           { return y.version }

func (y *TaxYear) ReleaseEvents() []Event {
	events := y.pending
	y.pending = nil
	return events
}

func (y *TaxYear) Currencies() []amount.Currency {
	currencies := util.MapKeys(y.gains)
	sort.Slice(currencies, func(i, j int) bool { return currencies[i] < currencies[j] })
	return currencies
}

func (y *TaxYear) CapitalGain(currency amount.Currency) CapitalGain {
	if g, ok := y.gains[currency]; ok {
		return g
	}
	return ZeroCapitalGain(currency)
}

// Disposals is the number of disposals currently counted in currency.
func (y *TaxYear) Disposals(currency amount.Currency) int {
	return y.disposals[currency]
}

func (y *TaxYear) check(action string, d date.Date, g CapitalGain) error {
	if IDOf(date.TaxYearOf(d)) != y.id {
		return fmt.Errorf("%s on %s does not belong to this tax year", action, d)
	}
	if err := g.check(); err != nil {
		return fmt.Errorf("%s on %s: %w", action, d, err)
	}
	return nil
}

func (y *TaxYear) UpdateCapitalGain(cmd UpdateCapitalGain) error {
	if err := y.check("Capital gain update", cmd.Date, cmd.CapitalGain); err != nil {
		return err
	}
	y.recordThat(&CapitalGainUpdated{AssetID: cmd.AssetID, Date: cmd.Date, CapitalGain: cmd.CapitalGain})
	return nil
}

func (y *TaxYear) RevertCapitalGain(cmd RevertCapitalGain) error {
	if err := y.check("Capital gain reversion", cmd.Date, cmd.CapitalGain); err != nil {
		return err
	}
	if y.disposals[cmd.CapitalGain.Currency()] == 0 {
		return fmt.Errorf("Capital gain reversion on %s: no %s gain was recorded",
			cmd.Date, cmd.CapitalGain.Currency())
	}
	y.recordThat(&CapitalGainReverted{AssetID: cmd.AssetID, Date: cmd.Date, CapitalGain: cmd.CapitalGain})
	return nil
}

func (y *TaxYear) recordThat(e Event) {
	y.apply(e)
	y.pending = append(y.pending, e)
}

func (y *TaxYear) apply(e Event) {
	var total CapitalGain
	var err error
	switch ev := e.(type) {
	case *CapitalGainUpdated:
		c := ev.CapitalGain.Currency()
		total, err = y.CapitalGain(c).Plus(ev.CapitalGain)
		y.gains[c] = total
		y.disposals[c]++
	case *CapitalGainReverted:
		c := ev.CapitalGain.Currency()
		total, err = y.CapitalGain(c).Minus(ev.CapitalGain)
		y.gains[c] = total
		y.disposals[c]--
	default:
		util.Assertf(false, "unknown tax year event %T", e)
	}
	util.Assertf(err == nil, "%s: %v", y.id, err)
}
