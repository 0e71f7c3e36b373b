package sharepool

import (
	"sort"

	"github.com/tsiemens/ukcgt/amount"
	"github.com/tsiemens/ukcgt/date"
	"github.com/tsiemens/ukcgt/util"
)

// Ledger holds an asset's transactions by position. A transaction keeps its
// position for its whole life, so allocations can refer to it.
type Ledger struct {
	txs []Transaction
}

func NewLedger() *Ledger {
	return &Ledger{}
}

func (l *Ledger) Len() int {
	return len(l.txs)
}

// NextPosition is the position the next new transaction will get.
func (l *Ledger) NextPosition() int {
	return len(l.txs)
}

// Add appends tx if it has no position yet (or its position is the next one),
// and replaces the transaction at its position otherwise.
func (l *Ledger) Add(tx Transaction) {
	pos := tx.Position()
	switch {
	case pos == NoPosition || pos == len(l.txs):
		tx.setPosition(len(l.txs))
		l.txs = append(l.txs, tx)
	case pos >= 0 && pos < len(l.txs):
		util.Assertf(sameVariant(l.txs[pos], tx),
			"Ledger.Add: cannot replace %T at position %d with %T", l.txs[pos], pos, tx)
		l.txs[pos] = tx
	default:
		util.Assertf(false, "Ledger.Add: position %d out of range (len %d)", pos, len(l.txs))
	}
}

func sameVariant(a Transaction, b Transaction) bool {
	switch a.(type) {
	case *Acquisition:
		_, ok := b.(*Acquisition)
		return ok
	case *Disposal:
		_, ok := b.(*Disposal)
		return ok
	}
	return false
}

func (l *Ledger) Get(position int) Transaction {
	util.Assertf(position >= 0 && position < len(l.txs),
		"Ledger.Get: position %d out of range (len %d)", position, len(l.txs))
	return l.txs[position]
}

func (l *Ledger) MustGetAcquisition(position int) *Acquisition {
	acq, ok := l.Get(position).(*Acquisition)
	util.Assertf(ok, "Ledger: transaction at position %d is not an acquisition", position)
	return acq
}

// Copy returns a deep copy, which can be mutated freely.
func (l *Ledger) Copy() *Ledger {
	c := &Ledger{txs: make([]Transaction, len(l.txs))}
	for i, tx := range l.txs {
		c.txs[i] = tx.copyTx()
	}
	return c
}

// Transactions returns copies of the transactions in position order.
func (l *Ledger) Transactions() []Transaction {
	return l.Copy().txs
}

// Acquisitions is a date-ordered subset of a ledger's acquisitions.
type Acquisitions []*Acquisition

// Disposals is a date-ordered subset of a ledger's disposals.
type Disposals []*Disposal

func (l *Ledger) acquisitionsWhere(pred func(*Acquisition) bool) Acquisitions {
	var out Acquisitions
	for _, tx := range l.txs {
		if acq, ok := tx.(*Acquisition); ok && pred(acq) {
			out = append(out, acq)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (l *Ledger) disposalsWhere(pred func(*Disposal) bool) Disposals {
	var out Disposals
	for _, tx := range l.txs {
		if d, ok := tx.(*Disposal); ok && pred(d) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (l *Ledger) AcquisitionsMadeOn(d date.Date) Acquisitions {
	return l.acquisitionsWhere(func(a *Acquisition) bool { return a.Date.Equal(d) })
}

func (l *Ledger) AcquisitionsMadeBetween(from date.Date, to date.Date) Acquisitions {
	return l.acquisitionsWhere(func(a *Acquisition) bool { return a.Date.Between(from, to) })
}

func (l *Ledger) AcquisitionsMadeBeforeOrOn(d date.Date) Acquisitions {
	return l.acquisitionsWhere(func(a *Acquisition) bool { return !a.Date.After(d) })
}

func (l *Ledger) DisposalsMadeOn(d date.Date) Disposals {
	return l.disposalsWhere(func(disp *Disposal) bool { return disp.Date.Equal(d) })
}

func (l *Ledger) DisposalsMadeBetween(from date.Date, to date.Date) Disposals {
	return l.disposalsWhere(func(disp *Disposal) bool { return disp.Date.Between(from, to) })
}

func (l *Ledger) Disposals() Disposals {
	return l.disposalsWhere(func(*Disposal) bool { return true })
}

func (l *Ledger) Acquisitions() Acquisitions {
	return l.acquisitionsWhere(func(*Acquisition) bool { return true })
}

// DisposalsWithThirtyDayQuantityAllocatedTo returns the disposals which
// matched part of the acquisition at position under the 30-day rule.
func (l *Ledger) DisposalsWithThirtyDayQuantityAllocatedTo(position int) Disposals {
	return l.disposalsWhere(func(d *Disposal) bool {
		return d.ThirtyDayQuantityAllocation.QuantityAllocatedTo(position).IsPositive()
	})
}

// ProcessedQuantityMadeBeforeOrOn is the quantity held at the end of the day,
// counting only processed disposals.
func (l *Ledger) ProcessedQuantityMadeBeforeOrOn(d date.Date) amount.Quantity {
	total := amount.ZeroQuantity
	for _, tx := range l.txs {
		switch t := tx.(type) {
		case *Acquisition:
			if !t.Date.After(d) {
				total = total.Add(t.Quantity)
			}
		case *Disposal:
			if t.Processed && !t.Date.After(d) {
				total = total.Sub(t.Quantity)
			}
		default:
			util.Assertf(false, "unknown transaction type %T", tx)
		}
	}
	return total
}

func (as Acquisitions) filter(pred func(*Acquisition) bool) Acquisitions {
	var out Acquisitions
	for _, a := range as {
		if pred(a) {
			out = append(out, a)
		}
	}
	return out
}

func (as Acquisitions) WithAvailableSameDayQuantity() Acquisitions {
	return as.filter((*Acquisition).HasAvailableSameDayQuantity)
}

func (as Acquisitions) WithAvailableThirtyDayQuantity() Acquisitions {
	return as.filter((*Acquisition).HasAvailableThirtyDayQuantity)
}

func (as Acquisitions) WithThirtyDayQuantity() Acquisitions {
	return as.filter((*Acquisition).HasThirtyDayQuantity)
}

func (as Acquisitions) Quantity() amount.Quantity {
	total := amount.ZeroQuantity
	for _, a := range as {
		total = total.Add(a.Quantity)
	}
	return total
}

func (as Acquisitions) AvailableSameDayQuantity() amount.Quantity {
	total := amount.ZeroQuantity
	for _, a := range as {
		total = total.Add(a.AvailableSameDayQuantity())
	}
	return total
}

// CostBasis returns false for an empty subset, which has no currency.
func (as Acquisitions) CostBasis() (amount.Money, bool) {
	if len(as) == 0 {
		return amount.Money{}, false
	}
	total := as[0].CostBasis.Zero()
	for _, a := range as {
		total = mustPlus(total, a.CostBasis)
	}
	return total, true
}

// AverageCostBasisPerUnit is the total cost basis over the total quantity. It
// is undefined (false) for a subset with no quantity.
func (as Acquisitions) AverageCostBasisPerUnit() (amount.Money, bool) {
	costBasis, ok := as.CostBasis()
	quantity := as.Quantity()
	if !ok || quantity.IsZero() {
		return amount.Money{}, false
	}
	perUnit, err := costBasis.DividedBy(quantity)
	util.Assertf(err == nil, "%v", err)
	return perUnit, true
}

func (ds Disposals) filter(pred func(*Disposal) bool) Disposals {
	var out Disposals
	for _, d := range ds {
		if pred(d) {
			out = append(out, d)
		}
	}
	return out
}

func (ds Disposals) Processed() Disposals {
	return ds.filter(func(d *Disposal) bool { return d.Processed })
}

func (ds Disposals) Unprocessed() Disposals {
	return ds.filter(func(d *Disposal) bool { return !d.Processed })
}

func (ds Disposals) WithAvailableSameDayQuantity() Disposals {
	return ds.filter((*Disposal).HasAvailableSameDayQuantity)
}

func (ds Disposals) WithAvailableThirtyDayQuantity() Disposals {
	return ds.filter((*Disposal).HasAvailableThirtyDayQuantity)
}

// Reverse returns the disposals most recent first.
func (ds Disposals) Reverse() Disposals {
	out := make(Disposals, len(ds))
	for i, d := range ds {
		out[len(ds)-1-i] = d
	}
	return out
}
