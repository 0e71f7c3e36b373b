package taxyear

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tsiemens/ukcgt/date"
	"github.com/tsiemens/ukcgt/eventstore"
)

type EventType string

const (
	EventCapitalGainUpdated  EventType = "tax_year.capital_gain_updated"
	EventCapitalGainReverted EventType = "tax_year.capital_gain_reverted"
)

type Event interface {
	Type() EventType
}

// CapitalGainUpdated adds the result of one disposal to the tax year.
type CapitalGainUpdated struct {
	AssetID     uuid.UUID   `json:"asset_id"`
	Date        date.Date   `json:"date"`
	CapitalGain CapitalGain `json:"capital_gain"`
}

// CapitalGainReverted takes back a result added before, when the disposal's
// cost basis is recomputed.
type CapitalGainReverted struct {
	AssetID     uuid.UUID   `json:"asset_id"`
	Date        date.Date   `json:"date"`
	CapitalGain CapitalGain `json:"capital_gain"`
}

func (*CapitalGainUpdated) Type() EventType  { return EventCapitalGainUpdated }
func (*CapitalGainReverted) Type() EventType { return EventCapitalGainReverted }

type Codec struct{}

func (Codec) MarshalEvent(e Event) (string, []byte, error) {
	switch e.(type) {
	case *CapitalGainUpdated, *CapitalGainReverted:
	default:
		return "", nil, fmt.Errorf("Unknown tax year event %T", e)
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
	case EventCapitalGainUpdated:
		e = &CapitalGainUpdated{}
	case EventCapitalGainReverted:
		e = &CapitalGainReverted{}
	default:
		return nil, fmt.Errorf("Unknown tax year event type %q", eventType)
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, err
	}
	return e, nil
}

func IsEventType(eventType string) bool {
	switch EventType(eventType) {
	case EventCapitalGainUpdated, EventCapitalGainReverted:
		return true
	}
	return false
}

type Repository = eventstore.Repository[*TaxYear, Event]

func NewRepository(store eventstore.Store) *Repository {
	return eventstore.NewRepository[*TaxYear, Event](store, Codec{}, Rehydrate)
}
