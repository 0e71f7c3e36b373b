package sharepool

import (
	"github.com/tsiemens/ukcgt/eventstore"
)

type Repository = eventstore.Repository[*Asset, Event]

func NewRepository(store eventstore.Store) *Repository {
	return eventstore.NewRepository[*Asset, Event](store, Codec{}, Rehydrate)
}
