package sharepool

import (
	"encoding/json"
	"fmt"

	"github.com/tsiemens/ukcgt/amount"
	"github.com/tsiemens/ukcgt/date"
)

type EventType string

const (
	EventAcquired         EventType = "share_pooling_asset.acquired"
	EventDisposedOf       EventType = "share_pooling_asset.disposed_of"
	EventDisposalReverted EventType = "share_pooling_asset.disposal_reverted"
)

type Event interface {
	Type() EventType
}

type Acquired struct {
	Position  int
	Date      date.Date
	Quantity  amount.Quantity
	CostBasis amount.Money
}

// DisposedOf carries a processed disposal.
type DisposedOf struct {
	Disposal *Disposal
}

// DisposalReverted carries the disposal as it was before being reverted.
// Consumers subtract its values before applying the next DisposedOf with the
// same position.
type DisposalReverted struct {
	Disposal *Disposal
}

func (*Acquired) Type() EventType         { return EventAcquired }
func (*DisposedOf) Type() EventType       { return EventDisposedOf }
func (*DisposalReverted) Type() EventType { return EventDisposalReverted }

type acquiredPayload struct {
	Position  int             `json:"position"`
	Date      date.Date       `json:"date"`
	Quantity  amount.Quantity `json:"quantity"`
	CostBasis amount.Money    `json:"cost_basis"`
}

type disposalPayload struct {
	ID                  int                     `json:"id"`
	Date                date.Date               `json:"date"`
	Quantity            amount.Quantity         `json:"quantity"`
	CostBasis           amount.Money            `json:"cost_basis"`
	Proceeds            amount.Money            `json:"proceeds"`
	SameDayAllocation   map[int]amount.Quantity `json:"same_day_allocation"`
	ThirtyDayAllocation map[int]amount.Quantity `json:"thirty_day_allocation"`
	Processed           bool                    `json:"processed"`
}

func toDisposalPayload(d *Disposal) disposalPayload {
	return disposalPayload{
		ID:                  d.Position(),
		Date:                d.Date,
		Quantity:            d.Quantity,
		CostBasis:           d.CostBasis,
		Proceeds:            d.Proceeds,
		SameDayAllocation:   d.SameDayQuantityAllocation.Copy(),
		ThirtyDayAllocation: d.ThirtyDayQuantityAllocation.Copy(),
		Processed:           d.Processed,
	}
}

func (p disposalPayload) disposal() *Disposal {
	d := &Disposal{
		position:                    p.ID,
		Date:                        p.Date,
		Quantity:                    p.Quantity,
		CostBasis:                   p.CostBasis,
		Proceeds:                    p.Proceeds,
		SameDayQuantityAllocation:   NewQuantityAllocation(),
		ThirtyDayQuantityAllocation: NewQuantityAllocation(),
		Processed:                   p.Processed,
	}
	for pos, q := range p.SameDayAllocation {
		d.SameDayQuantityAllocation[pos] = q
	}
	for pos, q := range p.ThirtyDayAllocation {
		d.ThirtyDayQuantityAllocation[pos] = q
	}
	return d
}

// Codec is the persisted form of the share pooling events. Every EventType
// has exactly one payload schema.
type Codec struct{}

func (Codec) MarshalEvent(e Event) (string, []byte, error) {
	var payload interface{}
	switch ev := e.(type) {
	case *Acquired:
		payload = acquiredPayload{ev.Position, ev.Date, ev.Quantity, ev.CostBasis}
	case *DisposedOf:
		payload = toDisposalPayload(ev.Disposal)
	case *DisposalReverted:
		payload = toDisposalPayload(ev.Disposal)
	default:
		return "", nil, fmt.Errorf("Unknown share pooling event %T", e)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}
	return string(e.Type()), data, nil
}

func (Codec) UnmarshalEvent(eventType string, data []byte) (Event, error) {
	switch EventType(eventType) {
	case EventAcquired:
		var p acquiredPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &Acquired{Position: p.Position, Date: p.Date, Quantity: p.Quantity, CostBasis: p.CostBasis}, nil
	case EventDisposedOf, EventDisposalReverted:
		var p disposalPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		if EventType(eventType) == EventDisposedOf {
			return &DisposedOf{Disposal: p.disposal()}, nil
		}
		return &DisposalReverted{Disposal: p.disposal()}, nil
	default:
		return nil, fmt.Errorf("Unknown share pooling event type %q", eventType)
	}
}

// IsEventType reports whether the persisted type belongs to this package.
func IsEventType(eventType string) bool {
	switch EventType(eventType) {
	case EventAcquired, EventDisposedOf, EventDisposalReverted:
		return true
	}
	return false
}
