package app

import (
	"context"
	"fmt"

	"github.com/tsiemens/ukcgt/asset"
	"github.com/tsiemens/ukcgt/eventstore"
	"github.com/tsiemens/ukcgt/log"
	"github.com/tsiemens/ukcgt/nonfungible"
	ptf "github.com/tsiemens/ukcgt/portfolio"
	"github.com/tsiemens/ukcgt/sharepool"
	"github.com/tsiemens/ukcgt/taxyear"
)

// Runner applies transactions to their asset aggregates and hands the
// committed events to the tax year reactor. Distinct assets may be driven
// from separate goroutines; the transactions of one asset must be applied
// in order from a single one.
type Runner struct {
	store      eventstore.Store
	dispatcher *eventstore.Dispatcher
	shares     *sharepool.Repository
	items      *nonfungible.Repository
	maxRetries int
}

func NewRunner(store eventstore.Store, maxRetries int, consumers ...eventstore.Consumer) *Runner {
	dispatcher := eventstore.NewDispatcher(taxyear.NewReactor(store, maxRetries))
	for _, c := range consumers {
		dispatcher.Register(c)
	}
	return &Runner{
		store:      store,
		dispatcher: dispatcher,
		shares:     sharepool.NewRepository(store),
		items:      nonfungible.NewRepository(store),
		maxRetries: maxRetries,
	}
}

func (r *Runner) Apply(ctx context.Context, tx *ptf.Tx) error {
	committed, err := r.execute(ctx, tx)
	if err != nil {
		return fmt.Errorf("%s of %s on %s: %w", tx.Action, tx.Asset, tx.Date, err)
	}
	log.Tracef("app", "%s %s on %s committed %d events", tx.Action, tx.Asset, tx.Date, len(committed))
	if err := r.dispatcher.Dispatch(ctx, committed); err != nil {
		return fmt.Errorf("%s of %s on %s: %w", tx.Action, tx.Asset, tx.Date, err)
	}
	return nil
}

func (r *Runner) execute(ctx context.Context, tx *ptf.Tx) ([]eventstore.Record, error) {
	id := tx.Asset.ID()
	if tx.Asset.NonFungible {
		return r.items.Execute(ctx, id, r.maxRetries, func(a *nonfungible.Asset) error {
			switch tx.Action {
			case ptf.ACQUIRE:
				return a.Acquire(nonfungible.Acquire{Date: tx.Date, CostBasis: tx.Amount})
			case ptf.DISPOSE:
				return a.DisposeOf(nonfungible.DisposeOf{Date: tx.Date, Proceeds: tx.Amount})
			}
			return fmt.Errorf("Unsupported action %s", tx.Action)
		})
	}
	return r.shares.Execute(ctx, id, r.maxRetries, func(a *sharepool.Asset) error {
		switch tx.Action {
		case ptf.ACQUIRE:
			return a.Acquire(sharepool.Acquire{Date: tx.Date, Quantity: tx.Quantity, CostBasis: tx.Amount})
		case ptf.DISPOSE:
			return a.DisposeOf(sharepool.DisposeOf{Date: tx.Date, Quantity: tx.Quantity, Proceeds: tx.Amount})
		}
		return fmt.Errorf("Unsupported action %s", tx.Action)
	})
}

// DisposalRows reads the current disposals of the asset back from the store.
func (r *Runner) DisposalRows(ctx context.Context, a asset.Asset) ([]ptf.DisposalRow, error) {
	if a.NonFungible {
		item, err := r.items.Retrieve(ctx, a.ID())
		if err != nil {
			return nil, err
		}
		return ptf.DisposalRowsOfNonFungible(item.Disposals()), nil
	}
	shares, err := r.shares.Retrieve(ctx, a.ID())
	if err != nil {
		return nil, err
	}
	return ptf.DisposalRowsOfLedger(shares.Ledger()), nil
}
