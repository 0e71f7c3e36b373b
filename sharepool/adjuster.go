package sharepool

import (
	"github.com/tsiemens/ukcgt/log"
	"github.com/tsiemens/ukcgt/util"
)

// RevertDisposal gives back to the acquisitions the quantities the disposal
// had allocated to them.
func RevertDisposal(disposal *Disposal, ledger *Ledger) {
	for _, pos := range disposal.SameDayQuantityAllocation.Positions() {
		acq := ledger.MustGetAcquisition(pos)
		q := disposal.SameDayQuantityAllocation.QuantityAllocatedTo(pos)
		if err := acq.DecreaseSameDayQuantity(q); err != nil {
			// FIXME: same-day quantity is not always tracked when an acquisition is
			// re-matched within 30 days of a same-day disposal. Tolerated until the
			// matching is fixed; the allocation is left as is.
			log.Tracef("sharepool", "reverting %s: %v (ignored)", disposal, err)
		}
	}
	for _, pos := range disposal.ThirtyDayQuantityAllocation.Positions() {
		acq := ledger.MustGetAcquisition(pos)
		q := disposal.ThirtyDayQuantityAllocation.QuantityAllocatedTo(pos)
		err := acq.DecreaseThirtyDayQuantity(q)
		util.Assertf(err == nil, "reverting %s: %v", disposal, err)
	}
}
