package taxyear

import (
	"context"
	"sort"
	"sync"

	"github.com/tsiemens/ukcgt/amount"
	"github.com/tsiemens/ukcgt/date"
	"github.com/tsiemens/ukcgt/eventstore"
	"github.com/tsiemens/ukcgt/util"
)

// YearSummary is one row of the summary: the totals of a tax year in one
// currency.
type YearSummary struct {
	Year        date.TaxYear
	Currency    amount.Currency
	CapitalGain CapitalGain
	Disposals   int
}

func (s YearSummary) Gain() amount.Money {
	gain, err := s.CapitalGain.Difference()
	util.Assertf(err == nil, "%v", err)
	return gain
}

type summaryKey struct {
	year     int
	currency amount.Currency
}

// Summary is a read model of the tax year events. It can be registered as a
// consumer, or built from the log with ProjectSummary.
type Summary struct {
	mu    sync.Mutex
	years map[summaryKey]*YearSummary
}

func NewSummary() *Summary {
	return &Summary{years: make(map[summaryKey]*YearSummary)}
}

func ProjectSummary(ctx context.Context, store eventstore.Store) (*Summary, error) {
	records, err := store.All(ctx)
	if err != nil {
		return nil, err
	}
	s := NewSummary()
	for _, rec := range records {
		if err := s.Handle(ctx, rec); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Summary) Handle(ctx context.Context, rec eventstore.Record) error {
	if !IsEventType(rec.Type) {
		return nil
	}
	e, err := Codec{}.UnmarshalEvent(rec.Type, rec.Payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev := e.(type) {
	case *CapitalGainUpdated:
		row := s.row(ev.Date, ev.CapitalGain.Currency())
		row.CapitalGain, err = row.CapitalGain.Plus(ev.CapitalGain)
		row.Disposals++
	case *CapitalGainReverted:
		row := s.row(ev.Date, ev.CapitalGain.Currency())
		row.CapitalGain, err = row.CapitalGain.Minus(ev.CapitalGain)
		row.Disposals--
	}
	return err
}

func (s *Summary) row(d date.Date, currency amount.Currency) *YearSummary {
	year := date.TaxYearOf(d)
	key := summaryKey{year.StartYear, currency}
	row, ok := s.years[key]
	if !ok {
		row = &YearSummary{Year: year, Currency: currency, CapitalGain: ZeroCapitalGain(currency)}
		s.years[key] = row
	}
	return row
}

// Years returns the rows by tax year, then currency.
func (s *Summary) Years() []YearSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]YearSummary, 0, len(s.years))
	for _, row := range s.years {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year.StartYear != out[j].Year.StartYear {
			return out[i].Year.StartYear < out[j].Year.StartYear
		}
		return out[i].Currency < out[j].Currency
	})
	return out
}
