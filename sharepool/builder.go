package sharepool

import (
	"github.com/tsiemens/ukcgt/amount"
	"github.com/tsiemens/ukcgt/date"
	"github.com/tsiemens/ukcgt/log"
)

// DisposalInput is what a disposal is built from.
type DisposalInput struct {
	Position int
	Date     date.Date
	Quantity amount.Quantity
	Proceeds amount.Money
}

// BuildDisposal computes the cost basis of a disposal against the ledger by
// matching, in order:
//  1. acquisitions made on the same day, at their average cost,
//  2. acquisitions made in the following 30 days, first in first out, each at
//     its own cost,
//  3. the section 104 pool, at the average cost of all acquisitions made on or
//     before the day.
//
// The ledger is not modified. The returned disposal is processed and has a
// position.
func BuildDisposal(in DisposalInput, ledger *Ledger) *Disposal {
	ledger = ledger.Copy()

	position := in.Position
	if position == NoPosition {
		position = ledger.NextPosition()
	}
	d := &Disposal{
		position:                    position,
		Date:                        in.Date,
		Quantity:                    in.Quantity,
		CostBasis:                   in.Proceeds.Zero(),
		Proceeds:                    in.Proceeds,
		SameDayQuantityAllocation:   NewQuantityAllocation(),
		ThirtyDayQuantityAllocation: NewQuantityAllocation(),
		Processed:                   true,
	}
	if !in.Quantity.IsPositive() {
		return d
	}

	remaining := in.Quantity
	remaining = matchSameDay(d, remaining, ledger)
	if remaining.IsPositive() {
		remaining = matchThirtyDay(d, remaining, ledger)
	}
	if remaining.IsPositive() {
		matchSection104Pool(d, remaining, ledger)
	}

	log.Tracef("sharepool", "built %s: cost basis %s, same-day %s, 30-day %s, pool %s",
		d, d.CostBasis, d.SameDayQuantity(), d.ThirtyDayQuantity(), d.Section104PoolQuantity())
	return d
}

// matchSameDay returns the quantity left unmatched.
func matchSameDay(d *Disposal, remaining amount.Quantity, ledger *Ledger) amount.Quantity {
	sameDay := ledger.AcquisitionsMadeOn(d.Date)
	available := sameDay.AvailableSameDayQuantity()
	if available.IsZero() {
		return remaining
	}
	// All of the day's acquisitions are pooled, whatever is left of each.
	perUnit, ok := sameDay.AverageCostBasisPerUnit()
	if !ok {
		return remaining
	}
	toMatch := amount.MinQuantity(remaining, available)
	d.CostBasis = mustPlus(d.CostBasis, perUnit.MultipliedBy(toMatch))

	// They share one rate, so ledger order is as good as any.
	left := toMatch
	for _, acq := range sameDay.WithAvailableSameDayQuantity() {
		allocated := acq.IncreaseSameDayQuantityUpToAvailable(left)
		d.SameDayQuantityAllocation.Allocate(acq.Position(), allocated)
		left = left.Sub(allocated)
		if left.IsZero() {
			break
		}
	}
	return remaining.Sub(toMatch)
}

func matchThirtyDay(d *Disposal, remaining amount.Quantity, ledger *Ledger) amount.Quantity {
	window := ledger.AcquisitionsMadeBetween(d.Date.AddDays(1), d.Date.AddDays(ThirtyDayWindow)).
		WithAvailableThirtyDayQuantity()

	claims := map[int]amount.Quantity{}
	claimedDays := map[string]bool{}
	for _, acq := range window {
		if day := acq.Date.String(); !claimedDays[day] {
			claimedDays[day] = true
			addPendingSameDayClaims(claims, acq.Date, ledger)
		}

		capacity := acq.AvailableThirtyDayQuantity()
		if claim, ok := claims[acq.Position()]; ok {
			capacity = capacity.Sub(amount.MinQuantity(claim, capacity))
		}
		if capacity.IsZero() {
			continue
		}

		toMatch := amount.MinQuantity(remaining, capacity)
		allocated := acq.IncreaseThirtyDayQuantityUpToAvailable(toMatch)
		d.CostBasis = mustPlus(d.CostBasis, acq.AverageCostBasisPerUnit().MultipliedBy(allocated))
		d.ThirtyDayQuantityAllocation.Allocate(acq.Position(), allocated)
		remaining = remaining.Sub(allocated)
		if remaining.IsZero() {
			break
		}
	}
	return remaining
}

// addPendingSameDayClaims records, per acquisition made on day, what the
// day's unprocessed disposals will take from it when they are matched as
// same-day. The quantity is spread over the acquisitions the way
// matchSameDay spreads it, so each unit is claimed once.
func addPendingSameDayClaims(claims map[int]amount.Quantity, day date.Date, ledger *Ledger) {
	pending := amount.ZeroQuantity
	for _, d := range ledger.DisposalsMadeOn(day).Unprocessed() {
		pending = pending.Add(d.AvailableSameDayQuantity())
	}
	for _, acq := range ledger.AcquisitionsMadeOn(day).WithAvailableSameDayQuantity() {
		if pending.IsZero() {
			return
		}
		claim := amount.MinQuantity(pending, acq.AvailableSameDayQuantity())
		claims[acq.Position()] = claim
		pending = pending.Sub(claim)
	}
}

func matchSection104Pool(d *Disposal, remaining amount.Quantity, ledger *Ledger) {
	pool := ledger.AcquisitionsMadeBeforeOrOn(d.Date)
	perUnit, ok := pool.AverageCostBasisPerUnit()
	if !ok {
		// The quantity check happens before building, so this is not expected.
		log.Tracef("sharepool", "%s: no section 104 pool for %s", d, remaining)
		return
	}
	d.CostBasis = mustPlus(d.CostBasis, perUnit.MultipliedBy(remaining))
}
