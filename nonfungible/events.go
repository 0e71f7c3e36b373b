package nonfungible

import (
	"encoding/json"
	"fmt"

	"github.com/tsiemens/ukcgt/amount"
	"github.com/tsiemens/ukcgt/date"
	"github.com/tsiemens/ukcgt/eventstore"
	"github.com/tsiemens/ukcgt/util"
)

type EventType string

const (
	EventAcquired           EventType = "non_fungible_asset.acquired"
	EventCostBasisIncreased EventType = "non_fungible_asset.cost_basis_increased"
	EventDisposedOf         EventType = "non_fungible_asset.disposed_of"
)

type Event interface {
	Type() EventType
}

type Acquired struct {
	Date      date.Date    `json:"date"`
	CostBasis amount.Money `json:"cost_basis"`
}

type CostBasisIncreased struct {
	Date              date.Date    `json:"date"`
	CostBasisIncrease amount.Money `json:"cost_basis_increase"`
}

type DisposedOf struct {
	Date      date.Date    `json:"date"`
	CostBasis amount.Money `json:"cost_basis"`
	Proceeds  amount.Money `json:"proceeds"`
}

func (*Acquired) Type() EventType           { return EventAcquired }
func (*CostBasisIncreased) Type() EventType { return EventCostBasisIncreased }
func (*DisposedOf) Type() EventType         { return EventDisposedOf }

func (d *DisposedOf) Gain() amount.Money {
	gain, err := d.Proceeds.Minus(d.CostBasis)
	util.Assertf(err == nil, "%v", err)
	return gain
}

type Codec struct{}

func (Codec) MarshalEvent(e Event) (string, []byte, error) {
	switch e.(type) {
	case *Acquired, *CostBasisIncreased, *DisposedOf:
	default:
		return "", nil, fmt.Errorf("Unknown non-fungible asset event %T", e)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return "", nil, err
	}
	return string(e.Type()), data, nil
}

func (Codec) UnmarshalEvent(eventType string, data []byte) (Event, error) {
	var e Event
	switch EventType(eventType) {
	case EventAcquired:
		e = &Acquired{}
	case EventCostBasisIncreased:
		e = &CostBasisIncreased{}
	case EventDisposedOf:
		e = &DisposedOf{}
	default:
		return nil, fmt.Errorf("Unknown non-fungible asset event type %q", eventType)
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, err
	}
	return e, nil
}

func IsEventType(eventType string) bool {
	switch EventType(eventType) {
	case EventAcquired, EventCostBasisIncreased, EventDisposedOf:
		return true
	}
	return false
}

type Repository = eventstore.Repository[*Asset, Event]

func NewRepository(store eventstore.Store) *Repository {
	return eventstore.NewRepository[*Asset, Event](store, Codec{}, Rehydrate)
}
