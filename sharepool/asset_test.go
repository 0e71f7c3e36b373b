package sharepool

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tsiemens/ukcgt/amount"
	"github.com/tsiemens/ukcgt/eventstore"
)

func TestSection104PoolDisposal(t *testing.T) {
	h := newAssetHelper(t)
	rq := h.rq

	rq.Equal([]string{"acquired:0"}, eventTypes(h.acquire(0, "100", "100")))
	events := h.dispose(9, "50", "75")
	rq.Equal([]string{"disposed_of:1"}, eventTypes(events))

	d := events[0].(*DisposedOf).Disposal
	requireMoney(rq, gbp("50"), d.CostBasis)
	requireMoney(rq, gbp("25"), d.Gain())
	rq.Empty(d.SameDayQuantityAllocation)
	rq.Empty(d.ThirtyDayQuantityAllocation)
	requireQuantity(rq, "50", d.Section104PoolQuantity())
	requireQuantity(rq, "50", h.a.Quantity())
}

func TestSection104PoolAveragesAllPriorAcquisitions(t *testing.T) {
	h := newAssetHelper(t)
	rq := h.rq

	h.acquire(0, "100", "100")
	h.acquire(5, "50", "200")
	// Not in the pool yet on day 40.
	h.acquire(80, "10", "1000")

	events := h.dispose(40, "30", "90")
	d := events[0].(*DisposedOf).Disposal
	requireMoney(rq, gbp("60"), d.CostBasis)
	requireMoney(rq, gbp("30"), d.Gain())
}

func TestSameDayDisposal(t *testing.T) {
	h := newAssetHelper(t)
	rq := h.rq

	h.acquire(0, "100", "100")
	events := h.dispose(0, "50", "60")
	d := events[0].(*DisposedOf).Disposal
	requireMoney(rq, gbp("50"), d.CostBasis)
	requireMoney(rq, gbp("10"), d.Gain())
	rq.Equal("0:50", allocStr(d.SameDayQuantityAllocation))

	requireQuantity(rq, "50", h.acquisition(0).SameDayQuantity())
	requireQuantity(rq, "50", h.acquisition(0).AvailableSameDayQuantity())
}

func TestSameDayAcquisitionsArePooled(t *testing.T) {
	h := newAssetHelper(t)
	rq := h.rq

	h.acquire(3, "10", "10")
	h.acquire(3, "30", "90")
	events := h.dispose(3, "20", "60")
	d := events[0].(*DisposedOf).Disposal

	// (10 + 90) / 40 = 2.5 per unit
	requireMoney(rq, gbp("50"), d.CostBasis)
	requireQuantity(rq, "20", d.SameDayQuantity())
	rq.Equal("0:10,1:10", allocStr(d.SameDayQuantityAllocation))
}

func TestSameDayThenPool(t *testing.T) {
	h := newAssetHelper(t)
	rq := h.rq

	h.acquire(0, "100", "100")
	h.acquire(10, "10", "40")
	events := h.dispose(10, "30", "120")
	d := events[0].(*DisposedOf).Disposal

	// 10 at 4, then 20 from the pool of 110 units costing 140.
	rq.Equal("1:10", allocStr(d.SameDayQuantityAllocation))
	requireQuantity(rq, "20", d.Section104PoolQuantity())
	exp, err := gbp("140").DividedBy(q("110"))
	rq.Nil(err)
	exp, err = exp.MultipliedBy(q("20")).Plus(gbp("40"))
	rq.Nil(err)
	requireMoney(rq, exp, d.CostBasis)
}

func TestThirtyDayIsFirstInFirstOut(t *testing.T) {
	h := newAssetHelper(t)
	rq := h.rq

	h.acquire(0, "100", "100")
	h.dispose(10, "50", "200")
	requireMoney(rq, gbp("50"), h.disposal(1).CostBasis)

	events := h.acquire(20, "20", "60")
	rq.Equal([]string{"disposal_reverted:1", "acquired:2", "disposed_of:1"}, eventTypes(events))
	requireMoney(rq, gbp("50"), events[0].(*DisposalReverted).Disposal.CostBasis)
	// 20 at 3, 30 at 1
	requireMoney(rq, gbp("90"), h.disposal(1).CostBasis)
	rq.Equal("2:20", allocStr(h.disposal(1).ThirtyDayQuantityAllocation))

	// Recorded later, but earlier in the window, so matched first.
	events = h.acquire(15, "20", "40")
	rq.Equal([]string{"disposal_reverted:1", "acquired:3", "disposed_of:1"}, eventTypes(events))
	d := h.disposal(1)
	// 20 at 2, 20 at 3, 10 at 1
	requireMoney(rq, gbp("110"), d.CostBasis)
	rq.Equal("2:20,3:20", allocStr(d.ThirtyDayQuantityAllocation))
	requireQuantity(rq, "10", d.Section104PoolQuantity())
	requireQuantity(rq, "20", h.acquisition(2).ThirtyDayQuantity())
	requireQuantity(rq, "20", h.acquisition(3).ThirtyDayQuantity())
}

func TestThirtyDayWindowBounds(t *testing.T) {
	h := newAssetHelper(t)
	rq := h.rq

	h.acquire(0, "100", "100")
	h.dispose(10, "50", "200")

	rq.Equal([]string{"acquired:2"}, eventTypes(h.acquire(41, "10", "1000")))
	requireMoney(rq, gbp("50"), h.disposal(1).CostBasis)

	events := h.acquire(40, "10", "30")
	rq.Equal([]string{"disposal_reverted:1", "acquired:3", "disposed_of:1"}, eventTypes(events))
	// 10 at 3, 40 from the pool
	requireMoney(rq, gbp("70"), h.disposal(1).CostBasis)
}

func TestRetroactiveSameDayAcquisition(t *testing.T) {
	h := newAssetHelper(t)
	rq := h.rq

	h.acquire(0, "100", "100")
	h.dispose(10, "50", "150")
	requireMoney(rq, gbp("50"), h.disposal(1).CostBasis)

	events := h.acquire(10, "50", "150")
	rq.Equal([]string{"disposal_reverted:1", "acquired:2", "disposed_of:1"}, eventTypes(events))

	reverted := events[0].(*DisposalReverted).Disposal
	requireMoney(rq, gbp("50"), reverted.CostBasis)

	replayed := events[2].(*DisposedOf).Disposal
	requireMoney(rq, gbp("150"), replayed.CostBasis)
	requireMoney(rq, gbp("0"), replayed.Gain())
	rq.Equal("2:50", allocStr(replayed.SameDayQuantityAllocation))
	rq.Len(h.a.Ledger().Disposals(), 1)
}

func TestAcquisitionRevertsAllSameDayDisposals(t *testing.T) {
	h := newAssetHelper(t)
	rq := h.rq

	h.acquire(0, "100", "100")
	h.dispose(5, "10", "50")
	h.dispose(5, "20", "50")

	events := h.acquire(5, "30", "90")
	rq.Equal([]string{
		"disposal_reverted:1", "disposal_reverted:2", "acquired:3", "disposed_of:1", "disposed_of:2",
	}, eventTypes(events))
	requireMoney(rq, gbp("30"), h.disposal(1).CostBasis)
	requireMoney(rq, gbp("60"), h.disposal(2).CostBasis)
	rq.Equal("3:10", allocStr(h.disposal(1).SameDayQuantityAllocation))
	rq.Equal("3:20", allocStr(h.disposal(2).SameDayQuantityAllocation))
}

func TestDisposalRevertsThirtyDayClaimOnSameDayAcquisition(t *testing.T) {
	h := newAssetHelper(t)
	rq := h.rq

	h.acquire(1, "100", "100")
	h.dispose(10, "50", "100")
	h.acquire(20, "50", "150")
	rq.Equal("2:50", allocStr(h.disposal(1).ThirtyDayQuantityAllocation))
	requireMoney(rq, gbp("150"), h.disposal(1).CostBasis)

	events := h.dispose(20, "30", "90")
	rq.Equal([]string{"disposal_reverted:1", "disposed_of:1", "disposed_of:3"}, eventTypes(events))

	// The new disposal keeps 30 of the acquisition as same-day.
	d1 := events[1].(*DisposedOf).Disposal
	rq.Equal("2:20", allocStr(d1.ThirtyDayQuantityAllocation))
	requireQuantity(rq, "30", d1.Section104PoolQuantity())
	requireMoney(rq, gbp("90"), d1.CostBasis)

	d3 := events[2].(*DisposedOf).Disposal
	rq.Equal(3, d3.Position())
	rq.Equal("2:30", allocStr(d3.SameDayQuantityAllocation))
	requireMoney(rq, gbp("90"), d3.CostBasis)

	acq := h.acquisition(2)
	requireQuantity(rq, "30", acq.SameDayQuantity())
	requireQuantity(rq, "20", acq.ThirtyDayQuantity())
	requireQuantity(rq, "0", acq.AvailableThirtyDayQuantity())
	requireQuantity(rq, "70", h.a.Quantity())
}

func TestPendingSameDayClaimIsSpreadOverTheDaysLots(t *testing.T) {
	for _, tc := range []struct {
		lots      [][2]string
		thirtyDay string
		sameDay   string
	}{
		{[][2]string{{"50", "150"}}, "2:20", "2:30"},
		{[][2]string{{"25", "75"}, {"25", "75"}}, "3:20", "2:25,3:5"},
		{[][2]string{{"10", "30"}, {"40", "120"}}, "3:20", "2:10,3:20"},
	} {
		h := newAssetHelper(t)
		rq := h.rq

		h.acquire(1, "100", "100")
		h.dispose(10, "50", "100")
		for _, lot := range tc.lots {
			h.acquire(20, lot[0], lot[1])
		}
		requireMoney(rq, gbp("150"), h.disposal(1).CostBasis)
		requireQuantity(rq, "50", h.disposal(1).ThirtyDayQuantity())

		events := h.dispose(20, "30", "90")
		rq.Equal([]string{"disposal_reverted:1", "disposed_of:1", fmt.Sprintf("disposed_of:%d", 2+len(tc.lots))},
			eventTypes(events))

		// How the day's purchases are split into lots makes no difference.
		d1 := events[1].(*DisposedOf).Disposal
		rq.Equal(tc.thirtyDay, allocStr(d1.ThirtyDayQuantityAllocation), "lots %v", tc.lots)
		requireQuantity(rq, "30", d1.Section104PoolQuantity())
		requireMoney(rq, gbp("90"), d1.CostBasis)

		d := events[2].(*DisposedOf).Disposal
		rq.Equal(tc.sameDay, allocStr(d.SameDayQuantityAllocation), "lots %v", tc.lots)
		requireMoney(rq, gbp("90"), d.CostBasis)

		allocated := amount.ZeroQuantity
		for pos := 2; pos < 2+len(tc.lots); pos++ {
			acq := h.acquisition(pos)
			rq.True(acq.SameDayQuantity().Add(acq.ThirtyDayQuantity()).LessThanOrEqual(acq.Quantity))
			allocated = allocated.Add(acq.SameDayQuantity()).Add(acq.ThirtyDayQuantity())
		}
		requireQuantity(rq, "50", allocated)
		requireQuantity(rq, "70", h.a.Quantity())
	}
}

func TestZeroQuantityDisposal(t *testing.T) {
	h := newAssetHelper(t)
	rq := h.rq

	h.acquire(0, "10", "10")
	events := h.dispose(1, "0", "0")
	d := events[0].(*DisposedOf).Disposal
	rq.True(d.CostBasis.IsZero())
	rq.True(d.Processed)
	requireQuantity(rq, "10", h.a.Quantity())
}

func TestInvalidQuantities(t *testing.T) {
	rq := require.New(t)
	a := newTestAsset()

	var invalid *InvalidQuantityError
	err := a.Acquire(Acquire{Date: mkDate(0), Quantity: q("0"), CostBasis: gbp("10")})
	rq.True(errors.As(err, &invalid), "%v", err)
	rq.Equal("acquisition", invalid.Action)

	rq.Nil(a.Acquire(Acquire{Date: mkDate(0), Quantity: q("10"), CostBasis: gbp("10")}))
	a.ReleaseEvents()

	err = a.DisposeOf(DisposeOf{Date: mkDate(1), Quantity: q("-1"), Proceeds: gbp("10")})
	rq.True(errors.As(err, &invalid), "%v", err)
	rq.Empty(a.ReleaseEvents())
}

func TestInsufficientQuantity(t *testing.T) {
	rq := require.New(t)
	a := newTestAsset()

	rq.Nil(a.Acquire(Acquire{Date: mkDate(5), Quantity: q("10"), CostBasis: gbp("10")}))
	a.ReleaseEvents()

	var insufficient *InsufficientQuantityError
	err := a.DisposeOf(DisposeOf{Date: mkDate(5), Quantity: q("11"), Proceeds: gbp("10")})
	rq.True(errors.As(err, &insufficient), "%v", err)
	requireQuantity(rq, "10", insufficient.Available)
	rq.Regexp(`Disposal on 2015-01-06 of 11 is more than the available quantity \(10\)`, err.Error())

	// Held quantity is counted at the end of the disposal's day.
	err = a.DisposeOf(DisposeOf{Date: mkDate(4), Quantity: q("1"), Proceeds: gbp("10")})
	rq.True(errors.As(err, &insufficient), "%v", err)

	rq.Empty(a.ReleaseEvents())
	rq.Equal(1, a.Ledger().Len())
}

func TestCurrencyIsFixedByFirstTransaction(t *testing.T) {
	rq := require.New(t)
	a := newTestAsset()
	rq.False(a.IsInitialized())

	rq.Nil(a.Acquire(Acquire{Date: mkDate(0), Quantity: q("10"), CostBasis: gbp("10")}))
	rq.Equal(amount.GBP, a.Currency())
	a.ReleaseEvents()

	var mismatch *amount.CurrencyMismatchError
	err := a.Acquire(Acquire{Date: mkDate(1), Quantity: q("10"), CostBasis: usd("10")})
	rq.True(errors.As(err, &mismatch), "%v", err)
	rq.Equal(amount.GBP, mismatch.Expected)

	err = a.DisposeOf(DisposeOf{Date: mkDate(1), Quantity: q("1"), Proceeds: usd("10")})
	rq.True(errors.As(err, &mismatch), "%v", err)

	rq.Empty(a.ReleaseEvents())
	rq.Equal(1, a.Ledger().Len())
	rq.Equal(amount.GBP, a.Currency())
}

func TestReplayedDisposalIsReproducible(t *testing.T) {
	h := newAssetHelper(t)
	rq := h.rq

	h.acquire(0, "100", "100")
	h.dispose(10, "50", "200")
	h.acquire(20, "20", "60")
	h.acquire(15, "20", "40")

	ledger := h.a.Ledger()
	orig := ledger.Get(1).(*Disposal)

	replayLedger := ledger.Copy()
	RevertDisposal(orig, replayLedger)
	replayLedger.Add(orig.CopyAsUnprocessed())
	rebuilt := BuildDisposal(DisposalInput{
		Position: orig.Position(),
		Date:     orig.Date,
		Quantity: orig.Quantity,
		Proceeds: orig.Proceeds,
	}, replayLedger)

	_, origPayload, err := Codec{}.MarshalEvent(&DisposedOf{Disposal: orig})
	rq.Nil(err)
	_, rebuiltPayload, err := Codec{}.MarshalEvent(&DisposedOf{Disposal: rebuilt})
	rq.Nil(err)
	rq.JSONEq(string(origPayload), string(rebuiltPayload))
}

type command struct {
	acquire *Acquire
	dispose *DisposeOf
}

func acq(day int, quantity string, costBasis string) command {
	return command{acquire: &Acquire{mkDate(day), q(quantity), gbp(costBasis)}}
}

func disp(day int, quantity string, proceeds string) command {
	return command{dispose: &DisposeOf{mkDate(day), q(quantity), gbp(proceeds)}}
}

func TestRehydratedAssetMatchesLiveAsset(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := NewRepository(eventstore.NewMemStore())
	live := newTestAsset()

	commands := []command{
		acq(1, "100", "100"),
		disp(10, "50", "100"),
		acq(20, "50", "150"),
		disp(20, "30", "90"),
		acq(12, "5", "50"),
		disp(12, "10", "10"),
		acq(60, "1.5", "4.5"),
		disp(61, "0.25", "1"),
	}
	for _, c := range commands {
		stored, err := repo.Retrieve(ctx, live.AggregateID())
		rq.Nil(err)
		if c.acquire != nil {
			rq.Nil(live.Acquire(*c.acquire))
			rq.Nil(stored.Acquire(*c.acquire))
		} else {
			rq.Nil(live.DisposeOf(*c.dispose))
			rq.Nil(stored.DisposeOf(*c.dispose))
		}
		live.ReleaseEvents()
		_, err = repo.Persist(ctx, stored)
		rq.Nil(err)
	}

	final, err := repo.Retrieve(ctx, live.AggregateID())
	rq.Nil(err)
	rq.Equal(dumpLedger(live.ledger), dumpLedger(final.ledger))
	rq.Equal(amount.GBP, final.Currency())
	requireQuantity(rq, live.Quantity().String(), final.Quantity())
}

func TestConcurrentDecisionsConflict(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := NewRepository(eventstore.NewMemStore())
	id := testAssetID().ID()

	first, err := repo.Retrieve(ctx, id)
	rq.Nil(err)
	second, err := repo.Retrieve(ctx, id)
	rq.Nil(err)

	rq.Nil(first.Acquire(Acquire{mkDate(0), q("10"), gbp("10")}))
	rq.Nil(second.Acquire(Acquire{mkDate(1), q("10"), gbp("20")}))

	_, err = repo.Persist(ctx, first)
	rq.Nil(err)
	_, err = repo.Persist(ctx, second)
	rq.ErrorIs(err, eventstore.ErrConcurrencyConflict)

	again, err := repo.Retrieve(ctx, id)
	rq.Nil(err)
	rq.Equal(1, again.Version())
	rq.Equal(1, again.Ledger().Len())
}
