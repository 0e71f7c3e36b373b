package sharepool

import (
	"sort"

	"github.com/tsiemens/ukcgt/amount"
	"github.com/tsiemens/ukcgt/date"
	"github.com/tsiemens/ukcgt/util"
)

// ThirtyDayWindow is the number of days after a disposal in which an
// acquisition is matched with it ("bed and breakfasting").
const ThirtyDayWindow = 30

// revertBatch collects copies of the disposals to revert, without duplicates.
type revertBatch struct {
	seen      *util.Set[int]
	disposals Disposals
}

func newRevertBatch() *revertBatch {
	return &revertBatch{seen: util.NewSet[int]()}
}

func (b *revertBatch) add(d *Disposal) {
	if b.seen.Has(d.Position()) {
		return
	}
	b.seen.Add(d.Position())
	b.disposals = append(b.disposals, d.Copy())
}

// result returns the batch in chronological order, which is the order the
// disposals are replayed in.
func (b *revertBatch) result() Disposals {
	out := b.disposals
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].Position() < out[j].Position()
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// DisposalsToRevertOnAcquisition returns the disposals whose cost basis may
// change once an acquisition of quantity on acqDate is recorded.
//
// Every disposal on the same day is reverted, since the same-day average
// changes with any new same-day acquisition. Whatever quantity those cannot
// absorb goes to the disposals of the previous 30 days, latest first.
func DisposalsToRevertOnAcquisition(
	acqDate date.Date, quantity amount.Quantity, ledger *Ledger) Disposals {

	batch := newRevertBatch()
	remaining := quantity

	for _, d := range ledger.DisposalsMadeOn(acqDate).Processed() {
		batch.add(d)
		remaining = remaining.Sub(amount.MinQuantity(d.AvailableSameDayQuantity(), remaining))
	}

	if remaining.IsPositive() {
		window := ledger.DisposalsMadeBetween(
			acqDate.AddDays(-ThirtyDayWindow), acqDate.AddDays(-1)).
			Processed().
			WithAvailableThirtyDayQuantity().
			Reverse()
		for _, d := range window {
			batch.add(d)
			remaining = remaining.Sub(amount.MinQuantity(d.AvailableThirtyDayQuantity(), remaining))
			if remaining.IsZero() {
				break
			}
		}
	}

	return batch.result()
}

// DisposalsToRevertOnDisposal returns the disposals which matched same-day
// acquisitions of a new disposal under the 30-day rule. The new disposal has
// priority on those acquisitions, so the latest such disposals are reverted
// until quantity is covered.
func DisposalsToRevertOnDisposal(
	dispDate date.Date, quantity amount.Quantity, ledger *Ledger) Disposals {

	batch := newRevertBatch()
	remaining := quantity
	if !remaining.IsPositive() {
		return batch.result()
	}

	for _, acq := range ledger.AcquisitionsMadeOn(dispDate).WithThirtyDayQuantity() {
		claimants := ledger.DisposalsWithThirtyDayQuantityAllocatedTo(acq.Position()).
			Processed().
			Reverse()
		for _, d := range claimants {
			batch.add(d)
			claimed := d.ThirtyDayQuantityAllocation.QuantityAllocatedTo(acq.Position())
			remaining = remaining.Sub(amount.MinQuantity(claimed, remaining))
			if remaining.IsZero() {
				return batch.result()
			}
		}
	}
	return batch.result()
}
