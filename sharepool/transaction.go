package sharepool

import (
	"fmt"

	"github.com/tsiemens/ukcgt/amount"
	"github.com/tsiemens/ukcgt/date"
	"github.com/tsiemens/ukcgt/util"
)

// NoPosition marks a transaction which has not been added to a ledger yet.
const NoPosition = -1

// Transaction is either an *Acquisition or a *Disposal.
type Transaction interface {
	Position() int
	setPosition(int)
	copyTx() Transaction
	sealed()
}

// txDate returns the date of either variant.
func txDate(tx Transaction) date.Date {
	switch t := tx.(type) {
	case *Acquisition:
		return t.Date
	case *Disposal:
		return t.Date
	default:
		util.Assertf(false, "unknown transaction type %T", tx)
		return date.Date{}
	}
}

type Acquisition struct {
	position          int
	Date              date.Date
	Quantity          amount.Quantity
	CostBasis         amount.Money
	sameDayQuantity   amount.Quantity
	thirtyDayQuantity amount.Quantity
}

func NewAcquisition(d date.Date, quantity amount.Quantity, costBasis amount.Money) *Acquisition {
	return &Acquisition{position: NoPosition, Date: d, Quantity: quantity, CostBasis: costBasis}
}

func (a *Acquisition) Position() int     { return a.position }
func (a *Acquisition) setPosition(p int) { a.position = p }
func (a *Acquisition) sealed()           {}

func (a *Acquisition) copyTx() Transaction {
	c := *a
	return &c
}

func (a *Acquisition) SameDayQuantity() amount.Quantity   { return a.sameDayQuantity }
func (a *Acquisition) ThirtyDayQuantity() amount.Quantity { return a.thirtyDayQuantity }

// AvailableSameDayQuantity is the quantity not yet matched by same-day
// disposals. Same-day matching has priority over 30-day matching, so 30-day
// allocations do not reduce it.
func (a *Acquisition) AvailableSameDayQuantity() amount.Quantity {
	return amount.MaxQuantity(amount.ZeroQuantity, a.Quantity.Sub(a.sameDayQuantity))
}

func (a *Acquisition) AvailableThirtyDayQuantity() amount.Quantity {
	return amount.MaxQuantity(amount.ZeroQuantity,
		a.Quantity.Sub(a.sameDayQuantity).Sub(a.thirtyDayQuantity))
}

func (a *Acquisition) HasAvailableSameDayQuantity() bool {
	return a.AvailableSameDayQuantity().IsPositive()
}

func (a *Acquisition) HasAvailableThirtyDayQuantity() bool {
	return a.AvailableThirtyDayQuantity().IsPositive()
}

func (a *Acquisition) HasThirtyDayQuantity() bool {
	return a.thirtyDayQuantity.IsPositive()
}

func (a *Acquisition) AverageCostBasisPerUnit() amount.Money {
	perUnit, err := a.CostBasis.DividedBy(a.Quantity)
	util.Assertf(err == nil, "acquisition %d on %s: %v", a.position, a.Date, err)
	return perUnit
}

// IncreaseSameDayQuantityUpToAvailable allocates at most the available
// same-day quantity and returns what was actually allocated.
func (a *Acquisition) IncreaseSameDayQuantityUpToAvailable(q amount.Quantity) amount.Quantity {
	allocated := amount.MinQuantity(q, a.AvailableSameDayQuantity())
	a.sameDayQuantity = a.sameDayQuantity.Add(allocated)
	return allocated
}

func (a *Acquisition) IncreaseThirtyDayQuantityUpToAvailable(q amount.Quantity) amount.Quantity {
	allocated := amount.MinQuantity(q, a.AvailableThirtyDayQuantity())
	a.thirtyDayQuantity = a.thirtyDayQuantity.Add(allocated)
	return allocated
}

func (a *Acquisition) DecreaseSameDayQuantity(q amount.Quantity) error {
	if q.GreaterThan(a.sameDayQuantity) {
		return &allocationError{"same-day", a.position, q, a.sameDayQuantity}
	}
	a.sameDayQuantity = a.sameDayQuantity.Sub(q)
	return nil
}

func (a *Acquisition) DecreaseThirtyDayQuantity(q amount.Quantity) error {
	if q.GreaterThan(a.thirtyDayQuantity) {
		return &allocationError{"30-day", a.position, q, a.thirtyDayQuantity}
	}
	a.thirtyDayQuantity = a.thirtyDayQuantity.Sub(q)
	return nil
}

type allocationError struct {
	rule      string
	position  int
	requested amount.Quantity
	allocated amount.Quantity
}

func (e *allocationError) Error() string {
	return fmt.Sprintf("Cannot decrease %s quantity of acquisition %d by %s, only %s is allocated",
		e.rule, e.position, e.requested, e.allocated)
}

// QuantityAllocation maps acquisition positions to the quantity allocated to
// them.
type QuantityAllocation map[int]amount.Quantity

func NewQuantityAllocation() QuantityAllocation {
	return QuantityAllocation{}
}

func (qa QuantityAllocation) Allocate(position int, q amount.Quantity) {
	if q.IsZero() {
		return
	}
	qa[position] = qa[position].Add(q)
}

func (qa QuantityAllocation) QuantityAllocatedTo(position int) amount.Quantity {
	return qa[position]
}

func (qa QuantityAllocation) Total() amount.Quantity {
	total := amount.ZeroQuantity
	for _, q := range qa {
		total = total.Add(q)
	}
	return total
}

func (qa QuantityAllocation) Positions() []int {
	return util.SortedIntMapKeys(qa)
}

func (qa QuantityAllocation) Copy() QuantityAllocation {
	c := make(QuantityAllocation, len(qa))
	for k, v := range qa {
		c[k] = v
	}
	return c
}

type Disposal struct {
	position                    int
	Date                        date.Date
	Quantity                    amount.Quantity
	CostBasis                   amount.Money
	Proceeds                    amount.Money
	SameDayQuantityAllocation   QuantityAllocation
	ThirtyDayQuantityAllocation QuantityAllocation
	Processed                   bool
}

func (d *Disposal) Position() int     { return d.position }
func (d *Disposal) setPosition(p int) { d.position = p }
func (d *Disposal) sealed()           {}
func (d *Disposal) copyTx() Transaction {
	return d.Copy()
}

func (d *Disposal) Copy() *Disposal {
	c := *d
	c.SameDayQuantityAllocation = d.SameDayQuantityAllocation.Copy()
	c.ThirtyDayQuantityAllocation = d.ThirtyDayQuantityAllocation.Copy()
	return &c
}

// CopyAsUnprocessed keeps the disposal's identity and inputs but drops its
// results.
func (d *Disposal) CopyAsUnprocessed() *Disposal {
	return &Disposal{
		position:                    d.position,
		Date:                        d.Date,
		Quantity:                    d.Quantity,
		CostBasis:                   d.Proceeds.Zero(),
		Proceeds:                    d.Proceeds,
		SameDayQuantityAllocation:   NewQuantityAllocation(),
		ThirtyDayQuantityAllocation: NewQuantityAllocation(),
		Processed:                   false,
	}
}

func (d *Disposal) SameDayQuantity() amount.Quantity {
	return d.SameDayQuantityAllocation.Total()
}

func (d *Disposal) ThirtyDayQuantity() amount.Quantity {
	return d.ThirtyDayQuantityAllocation.Total()
}

func (d *Disposal) AvailableSameDayQuantity() amount.Quantity {
	return amount.MaxQuantity(amount.ZeroQuantity, d.Quantity.Sub(d.SameDayQuantity()))
}

// AvailableThirtyDayQuantity is the quantity matched by neither rule, ie. the
// quantity that went to the section 104 pool.
func (d *Disposal) AvailableThirtyDayQuantity() amount.Quantity {
	return amount.MaxQuantity(amount.ZeroQuantity,
		d.Quantity.Sub(d.SameDayQuantity()).Sub(d.ThirtyDayQuantity()))
}

func (d *Disposal) Section104PoolQuantity() amount.Quantity {
	return d.AvailableThirtyDayQuantity()
}

func (d *Disposal) HasAvailableSameDayQuantity() bool {
	return d.AvailableSameDayQuantity().IsPositive()
}

func (d *Disposal) HasAvailableThirtyDayQuantity() bool {
	return d.AvailableThirtyDayQuantity().IsPositive()
}

// Gain is the proceeds minus the cost basis.
func (d *Disposal) Gain() amount.Money {
	return mustMinus(d.Proceeds, d.CostBasis)
}

func (d *Disposal) String() string {
	return fmt.Sprintf("disposal %d on %s of %s", d.position, d.Date, d.Quantity)
}

// Amounts within one asset always share its currency, so a mismatch here is a
// bug rather than bad input.
func mustPlus(a amount.Money, b amount.Money) amount.Money {
	res, err := a.Plus(b)
	util.Assertf(err == nil, "%v", err)
	return res
}

func mustMinus(a amount.Money, b amount.Money) amount.Money {
	res, err := a.Minus(b)
	util.Assertf(err == nil, "%v", err)
	return res
}
