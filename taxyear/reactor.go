package taxyear

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tsiemens/ukcgt/date"
	"github.com/tsiemens/ukcgt/eventstore"
	"github.com/tsiemens/ukcgt/log"
	"github.com/tsiemens/ukcgt/nonfungible"
	"github.com/tsiemens/ukcgt/sharepool"
)

// Reactor feeds the disposal results of asset aggregates into the tax years
// they fall in. Acquisitions are ignored.
type Reactor struct {
	repo       *Repository
	maxRetries int
}

func NewReactor(store eventstore.Store, maxRetries int) *Reactor {
	return &Reactor{repo: NewRepository(store), maxRetries: maxRetries}
}

func (r *Reactor) Handle(ctx context.Context, rec eventstore.Record) error {
	switch {
	case sharepool.IsEventType(rec.Type):
		e, err := sharepool.Codec{}.UnmarshalEvent(rec.Type, rec.Payload)
		if err != nil {
			return err
		}
		switch ev := e.(type) {
		case *sharepool.DisposedOf:
			d := ev.Disposal
			return r.update(ctx, rec.AggregateID, d.Date, CapitalGain{d.CostBasis, d.Proceeds})
		case *sharepool.DisposalReverted:
			d := ev.Disposal
			return r.revert(ctx, rec.AggregateID, d.Date, CapitalGain{d.CostBasis, d.Proceeds})
		}
	case nonfungible.IsEventType(rec.Type):
		e, err := nonfungible.Codec{}.UnmarshalEvent(rec.Type, rec.Payload)
		if err != nil {
			return err
		}
		if ev, ok := e.(*nonfungible.DisposedOf); ok {
			return r.update(ctx, rec.AggregateID, ev.Date, CapitalGain{ev.CostBasis, ev.Proceeds})
		}
	}
	return nil
}

func (r *Reactor) update(ctx context.Context, assetID uuid.UUID, d date.Date, g CapitalGain) error {
	year := date.TaxYearOf(d)
	log.Tracef("taxyear", "%s: update from %s on %s: %+v", year, assetID, d, g)
	_, err := r.repo.Execute(ctx, IDOf(year), r.maxRetries, func(y *TaxYear) error {
		return y.UpdateCapitalGain(UpdateCapitalGain{AssetID: assetID, Date: d, CapitalGain: g})
	})
	if err != nil {
		return fmt.Errorf("Tax year %s: %w", year, err)
	}
	return nil
}

func (r *Reactor) revert(ctx context.Context, assetID uuid.UUID, d date.Date, g CapitalGain) error {
	year := date.TaxYearOf(d)
	log.Tracef("taxyear", "%s: revert from %s on %s: %+v", year, assetID, d, g)
	_, err := r.repo.Execute(ctx, IDOf(year), r.maxRetries, func(y *TaxYear) error {
		return y.RevertCapitalGain(RevertCapitalGain{AssetID: assetID, Date: d, CapitalGain: g})
	})
	if err != nil {
		return fmt.Errorf("Tax year %s: %w", year, err)
	}
	return nil
}
