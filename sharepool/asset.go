// Package sharepool tracks a fungible asset's acquisitions and disposals and
// computes each disposal's cost basis under the UK share matching rules:
// same-day, then 30-day, then the section 104 pool.
//
// A late acquisition can change the cost basis of disposals already
// recorded. The Asset aggregate handles this by reverting the affected
// disposals, recording the new transaction, and replaying them, all as events.
package sharepool

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tsiemens/ukcgt/amount"
	"github.com/tsiemens/ukcgt/date"
	"github.com/tsiemens/ukcgt/log"
	"github.com/tsiemens/ukcgt/util"
)

type Acquire struct {
	Date      date.Date
	Quantity  amount.Quantity
	CostBasis amount.Money
}

type DisposeOf struct {
	Date     date.Date
	Quantity amount.Quantity
	Proceeds amount.Money
}

// Asset is the share pooling aggregate of one fungible asset. It is not safe
// for concurrent use; each command runs on a freshly rehydrated instance.
type Asset struct {
	id       uuid.UUID
	currency amount.Currency
	ledger   *Ledger
	version  int
	pending  []Event
}

func NewAsset(id uuid.UUID) *Asset {
	return &Asset{id: id, ledger: NewLedger()}
}

// Rehydrate rebuilds an asset from its persisted history.
func Rehydrate(id uuid.UUID, history []Event, version int) *Asset {
	a := NewAsset(id)
	for _, e := range history {
		a.apply(e)
	}
	a.version = version
	return a
}

func (a *Asset) AggregateID() uuid.UUID { return a.id }

// Version is the number of persisted events the asset was rehydrated from.
func (a *Asset) Version() int { return a.version }

// ReleaseEvents returns and forgets the events recorded since rehydration.
func (a *Asset) ReleaseEvents() []Event {
	events := a.pending
	a.pending = nil
	return events
}

func (a *Asset) Currency() amount.Currency { return a.currency }

func (a *Asset) IsInitialized() bool { return a.currency != amount.NoCurrency }

// Ledger returns a copy of the asset's transactions.
func (a *Asset) Ledger() *Ledger { return a.ledger.Copy() }

func (a *Asset) Quantity() amount.Quantity {
	total := amount.ZeroQuantity
	for _, tx := range a.ledger.txs {
		switch t := tx.(type) {
		case *Acquisition:
			total = total.Add(t.Quantity)
		case *Disposal:
			total = total.Sub(t.Quantity)
		}
	}
	return total
}

func (a *Asset) checkCurrency(action string, d date.Date, currency amount.Currency) error {
	if a.IsInitialized() && a.currency != currency {
		return fmt.Errorf("%s on %s: %w", action, d,
			&amount.CurrencyMismatchError{Expected: a.currency, Actual: currency})
	}
	return nil
}

// atomically runs fn and undoes its effects on the asset if it fails.
func (a *Asset) atomically(fn func() error) error {
	ledger := a.ledger.Copy()
	currency := a.currency
	nPending := len(a.pending)
	if err := fn(); err != nil {
		a.ledger = ledger
		a.currency = currency
		a.pending = a.pending[:nPending]
		return err
	}
	return nil
}

func (a *Asset) Acquire(cmd Acquire) error {
	return a.atomically(func() error {
		if err := a.checkCurrency("Acquisition", cmd.Date, cmd.CostBasis.Currency); err != nil {
			return err
		}
		if !cmd.Quantity.IsPositive() {
			return &InvalidQuantityError{"acquisition", cmd.Date, cmd.Quantity}
		}

		toRevert := DisposalsToRevertOnAcquisition(cmd.Date, cmd.Quantity, a.ledger)
		a.revertDisposals(toRevert)

		a.recordThat(&Acquired{
			Position:  a.ledger.NextPosition(),
			Date:      cmd.Date,
			Quantity:  cmd.Quantity,
			CostBasis: cmd.CostBasis,
		})

		return a.replayDisposals(toRevert, 0)
	})
}

func (a *Asset) DisposeOf(cmd DisposeOf) error {
	return a.atomically(func() error {
		return a.disposeOf(DisposalInput{
			Position: NoPosition,
			Date:     cmd.Date,
			Quantity: cmd.Quantity,
			Proceeds: cmd.Proceeds,
		}, 0)
	})
}

func (a *Asset) disposeOf(in DisposalInput, depth int) error {
	// Each replay level reverts at least one processed disposal, so the depth
	// cannot legitimately exceed the number of disposals.
	maxDepth := len(a.ledger.Disposals()) + 1
	util.Assertf(depth <= maxDepth,
		"disposal replay on %s exceeded depth %d", in.Date, maxDepth)

	if err := a.checkCurrency("Disposal", in.Date, in.Proceeds.Currency); err != nil {
		return err
	}
	if in.Quantity.IsNegative() {
		return &InvalidQuantityError{"disposal", in.Date, in.Quantity}
	}
	available := a.ledger.ProcessedQuantityMadeBeforeOrOn(in.Date)
	if available.LessThan(in.Quantity) {
		return &InsufficientQuantityError{Date: in.Date, Requested: in.Quantity, Available: available}
	}

	toRevert := DisposalsToRevertOnDisposal(in.Date, in.Quantity, a.ledger)
	if len(toRevert) == 0 {
		a.recordDisposal(in)
		return nil
	}

	a.revertDisposals(toRevert)

	// Placeholder so the replayed disposals leave this disposal's same-day
	// acquisitions to it. Not an event: replaying the history reaches the
	// same state without it.
	if in.Position == NoPosition {
		in.Position = a.ledger.NextPosition()
	}
	placeholder := &Disposal{
		position: in.Position,
		Date:     in.Date,
		Quantity: in.Quantity,
		Proceeds: in.Proceeds,
	}
	a.ledger.Add(placeholder.CopyAsUnprocessed())

	if err := a.replayDisposals(toRevert, depth); err != nil {
		return err
	}
	a.recordDisposal(in)
	return nil
}

func (a *Asset) recordDisposal(in DisposalInput) {
	a.recordThat(&DisposedOf{Disposal: BuildDisposal(in, a.ledger)})
}

func (a *Asset) revertDisposals(disposals Disposals) {
	for _, d := range disposals {
		log.Tracef("sharepool", "%s: reverting %s", a.id, d)
		a.recordThat(&DisposalReverted{Disposal: d})
	}
}

func (a *Asset) replayDisposals(disposals Disposals, depth int) error {
	for _, d := range disposals {
		log.Tracef("sharepool", "%s: replaying %s", a.id, d)
		err := a.disposeOf(DisposalInput{
			Position: d.Position(),
			Date:     d.Date,
			Quantity: d.Quantity,
			Proceeds: d.Proceeds,
		}, depth+1)
		if err != nil {
			return fmt.Errorf("Replaying %s: %w", d, err)
		}
	}
	return nil
}

func (a *Asset) recordThat(e Event) {
	a.apply(e)
	a.pending = append(a.pending, e)
}

func (a *Asset) apply(e Event) {
	switch ev := e.(type) {
	case *Acquired:
		acq := NewAcquisition(ev.Date, ev.Quantity, ev.CostBasis)
		acq.setPosition(ev.Position)
		a.ledger.Add(acq)
		a.fixCurrency(ev.CostBasis.Currency)
	case *DisposedOf:
		a.applyAllocations(ev.Disposal)
		a.ledger.Add(ev.Disposal.Copy())
		a.fixCurrency(ev.Disposal.Proceeds.Currency)
	case *DisposalReverted:
		RevertDisposal(ev.Disposal, a.ledger)
		a.ledger.Add(ev.Disposal.CopyAsUnprocessed())
	default:
		util.Assertf(false, "unknown share pooling event %T", e)
	}
}

func (a *Asset) fixCurrency(c amount.Currency) {
	if !a.IsInitialized() {
		a.currency = c
	}
}

func (a *Asset) applyAllocations(d *Disposal) {
	for _, pos := range d.SameDayQuantityAllocation.Positions() {
		q := d.SameDayQuantityAllocation.QuantityAllocatedTo(pos)
		got := a.ledger.MustGetAcquisition(pos).IncreaseSameDayQuantityUpToAvailable(q)
		if !got.Equal(q) {
			log.Tracef("sharepool", "%s: same-day allocation to %d capped at %s (wanted %s)", d, pos, got, q)
		}
	}
	for _, pos := range d.ThirtyDayQuantityAllocation.Positions() {
		q := d.ThirtyDayQuantityAllocation.QuantityAllocatedTo(pos)
		got := a.ledger.MustGetAcquisition(pos).IncreaseThirtyDayQuantityUpToAvailable(q)
		if !got.Equal(q) {
			log.Tracef("sharepool", "%s: 30-day allocation to %d capped at %s (wanted %s)", d, pos, got, q)
		}
	}
}
