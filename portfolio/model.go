package portfolio

import (
	"sort"

	"github.com/tsiemens/ukcgt/amount"
	"github.com/tsiemens/ukcgt/asset"
	"github.com/tsiemens/ukcgt/date"
)

type TxAction int

const (
	NO_ACTION TxAction = iota
	ACQUIRE
	DISPOSE
)

func (a TxAction) String() string {
	switch a {
	case ACQUIRE:
		return "Acquire"
	case DISPOSE:
		return "Dispose"
	}
	return "Invalid Action"
}

// Tx is one row of input. For an acquisition Amount is the cost basis
// (including fees), for a disposal it is the proceeds.
type Tx struct {
	Asset    asset.Asset
	Date     date.Date
	Action   TxAction
	Quantity amount.Quantity
	Amount   amount.Money
	Memo     string

	// The order the tx was read in, so sorting by date is stable across files.
	ReadIndex uint32
}

type txSorter struct {
	Txs []*Tx
}

func (s *txSorter) Len() int {
	return len(s.Txs)
}

func (s *txSorter) Swap(i, j int) {
	s.Txs[i], s.Txs[j] = s.Txs[j], s.Txs[i]
}

func (s *txSorter) Less(i, j int) bool {
	if s.Txs[i].Date.Equal(s.Txs[j].Date) {
		return s.Txs[i].ReadIndex < s.Txs[j].ReadIndex
	}
	return s.Txs[i].Date.Before(s.Txs[j].Date)
}

// SortTxs sorts by date, keeping the read order within a day.
func SortTxs(txs []*Tx) []*Tx {
	sort.Stable(&txSorter{Txs: txs})
	return txs
}

// SplitTxsByAsset groups txs per asset, keeping their order.
func SplitTxsByAsset(txs []*Tx) map[asset.Asset][]*Tx {
	txsByAsset := make(map[asset.Asset][]*Tx)
	for _, tx := range txs {
		txsByAsset[tx.Asset] = append(txsByAsset[tx.Asset], tx)
	}
	return txsByAsset
}

// CheckAssetTypes rejects a symbol used both as a fungible and a non-fungible
// asset.
func CheckAssetTypes(txs []*Tx) error {
	seen := make(map[string]asset.Asset)
	for _, tx := range txs {
		key := asset.NormalizeSymbol(tx.Asset.Symbol)
		if prev, ok := seen[key]; ok && prev.NonFungible != tx.Asset.NonFungible {
			return &asset.TypeMismatchError{Symbol: tx.Asset.Symbol, Was: prev}
		}
		seen[key] = tx.Asset
	}
	return nil
}
