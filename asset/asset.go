package asset

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Namespace for the name-based ids of assets and other aggregates.
var Namespace = uuid.MustParse("2b0b6a4e-6f2a-4a55-9a2e-4d1f3c7e9b10")

// Asset is a tradable thing. Fungible assets are identified by their
// normalized symbol.
type Asset struct {
	Symbol      string
	NonFungible bool
}

func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func New(symbol string, nonFungible bool) (Asset, error) {
	s := strings.TrimSpace(symbol)
	if !nonFungible {
		s = NormalizeSymbol(s)
	}
	if s == "" {
		return Asset{}, fmt.Errorf("Asset has no symbol")
	}
	return Asset{Symbol: s, NonFungible: nonFungible}, nil
}

func (a Asset) kind() string {
	if a.NonFungible {
		return "non-fungible"
	}
	return "fungible"
}

// ID derives the aggregate id of the asset. It is stable across runs.
func (a Asset) ID() uuid.UUID {
	return NameID(a.kind(), a.Symbol)
}

func (a Asset) String() string {
	if a.NonFungible {
		return a.Symbol + " (NFT)"
	}
	return a.Symbol
}

// NameID derives a deterministic aggregate id from a kind and a name.
func NameID(kind string, name string) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte(kind+":"+name))
}

// TypeMismatchError is returned when an asset is used as fungible and as
// non-fungible.
type TypeMismatchError struct {
	Symbol string
	Was    Asset
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("Asset %s was already recorded as %s", e.Symbol, e.Was.kind())
}
