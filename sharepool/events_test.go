package sharepool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisposalPayload(t *testing.T) {
	rq := require.New(t)
	d := processedDisposal(9, "50")
	d.setPosition(3)
	d.CostBasis = gbp("90")
	d.Proceeds = gbp("100")
	d.ThirtyDayQuantityAllocation.Allocate(2, q("20"))

	eventType, payload, err := Codec{}.MarshalEvent(&DisposedOf{Disposal: d})
	rq.Nil(err)
	rq.Equal("share_pooling_asset.disposed_of", eventType)
	rq.JSONEq(`{
		"id": 3,
		"date": "2015-01-10",
		"quantity": "50",
		"cost_basis": {"amount": "90", "currency": "GBP"},
		"proceeds": {"amount": "100", "currency": "GBP"},
		"same_day_allocation": {},
		"thirty_day_allocation": {"2": "20"},
		"processed": true
	}`, string(payload))

	e, err := Codec{}.UnmarshalEvent(string(EventDisposalReverted), payload)
	rq.Nil(err)
	reverted, ok := e.(*DisposalReverted)
	rq.True(ok)
	rq.Equal(3, reverted.Disposal.Position())
	rq.Equal("2:20", allocStr(reverted.Disposal.ThirtyDayQuantityAllocation))
	requireMoney(rq, gbp("90"), reverted.Disposal.CostBasis)
}

func TestAcquiredPayload(t *testing.T) {
	rq := require.New(t)
	eventType, payload, err := Codec{}.MarshalEvent(&Acquired{
		Position: 0, Date: mkDate(0), Quantity: q("1.5"), CostBasis: gbp("3"),
	})
	rq.Nil(err)
	rq.True(IsEventType(eventType))
	rq.JSONEq(`{"position": 0, "date": "2015-01-01", "quantity": "1.5",
		"cost_basis": {"amount": "3", "currency": "GBP"}}`, string(payload))

	e, err := Codec{}.UnmarshalEvent(eventType, payload)
	rq.Nil(err)
	acq := e.(*Acquired)
	rq.True(acq.Date.Equal(mkDate(0)))
	requireQuantity(rq, "1.5", acq.Quantity)
}

func TestUnknownEventType(t *testing.T) {
	rq := require.New(t)
	rq.False(IsEventType("non_fungible_asset.acquired"))
	_, err := Codec{}.UnmarshalEvent("share_pooling_asset.split", []byte(`{}`))
	rq.ErrorContains(err, "Unknown share pooling event type")
}
