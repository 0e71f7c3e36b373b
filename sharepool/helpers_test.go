package sharepool

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tsiemens/ukcgt/amount"
	"github.com/tsiemens/ukcgt/asset"
	"github.com/tsiemens/ukcgt/date"
	"github.com/tsiemens/ukcgt/util"
)

func TestMain(m *testing.M) {
	util.AssertsPanic = true
	os.Exit(m.Run())
}

var q = amount.RequireQuantity

func gbp(v string) amount.Money { return amount.RequireMoney(v, amount.GBP) }
func usd(v string) amount.Money { return amount.RequireMoney(v, "USD") }

func mkDate(day int) date.Date {
	return date.New(2015, time.January, 1).AddDays(day)
}

func testAssetID() asset.Asset {
	return asset.Asset{Symbol: "FOO"}
}

func newTestAsset() *Asset {
	return NewAsset(testAssetID().ID())
}

type assetHelper struct {
	rq *require.Assertions
	a  *Asset
}

func newAssetHelper(t *testing.T) *assetHelper {
	return &assetHelper{rq: require.New(t), a: newTestAsset()}
}

func (h *assetHelper) acquire(day int, quantity string, costBasis string) []Event {
	h.rq.Nil(h.a.Acquire(Acquire{Date: mkDate(day), Quantity: q(quantity), CostBasis: gbp(costBasis)}))
	return h.a.ReleaseEvents()
}

func (h *assetHelper) dispose(day int, quantity string, proceeds string) []Event {
	h.rq.Nil(h.a.DisposeOf(DisposeOf{Date: mkDate(day), Quantity: q(quantity), Proceeds: gbp(proceeds)}))
	return h.a.ReleaseEvents()
}

func (h *assetHelper) disposal(position int) *Disposal {
	d, ok := h.a.ledger.Get(position).(*Disposal)
	h.rq.True(ok, "position %d is not a disposal", position)
	return d
}

func (h *assetHelper) acquisition(position int) *Acquisition {
	return h.a.ledger.MustGetAcquisition(position)
}

func requireQuantity(rq *require.Assertions, exp string, actual amount.Quantity) {
	rq.True(q(exp).Equal(actual), "expected quantity %s, got %s", exp, actual)
}

func requireMoney(rq *require.Assertions, exp amount.Money, actual amount.Money) {
	rq.True(exp.Equal(actual), "expected %s, got %s", exp, actual)
}

// allocStr renders an allocation as "pos:qty,..." in position order.
func allocStr(qa QuantityAllocation) string {
	parts := []string{}
	for _, pos := range qa.Positions() {
		parts = append(parts, fmt.Sprintf("%d:%s", pos, qa[pos]))
	}
	return strings.Join(parts, ",")
}

// eventTypes lists the event types, with the position of disposal events.
func eventTypes(events []Event) []string {
	out := []string{}
	for _, e := range events {
		switch ev := e.(type) {
		case *Acquired:
			out = append(out, fmt.Sprintf("acquired:%d", ev.Position))
		case *DisposedOf:
			out = append(out, fmt.Sprintf("disposed_of:%d", ev.Disposal.Position()))
		case *DisposalReverted:
			out = append(out, fmt.Sprintf("disposal_reverted:%d", ev.Disposal.Position()))
		}
	}
	return out
}

// dumpLedger renders the full state of a ledger, for comparisons.
func dumpLedger(l *Ledger) []string {
	out := []string{}
	for _, tx := range l.Transactions() {
		switch t := tx.(type) {
		case *Acquisition:
			out = append(out, fmt.Sprintf("A%d %s q=%s cb=%s sd=%s td=%s",
				t.Position(), t.Date, t.Quantity, t.CostBasis, t.SameDayQuantity(), t.ThirtyDayQuantity()))
		case *Disposal:
			out = append(out, fmt.Sprintf("D%d %s q=%s cb=%s p=%s sd=[%s] td=[%s] processed=%v",
				t.Position(), t.Date, t.Quantity, t.CostBasis, t.Proceeds,
				allocStr(t.SameDayQuantityAllocation), allocStr(t.ThirtyDayQuantityAllocation), t.Processed))
		}
	}
	return out
}

func positions(ds Disposals) []int {
	out := []int{}
	for _, d := range ds {
		out = append(out, d.Position())
	}
	sort.Ints(out)
	return out
}
