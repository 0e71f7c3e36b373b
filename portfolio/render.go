package portfolio

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tsiemens/ukcgt/amount"
	"github.com/tsiemens/ukcgt/date"
	"github.com/tsiemens/ukcgt/nonfungible"
	"github.com/tsiemens/ukcgt/sharepool"
	"github.com/tsiemens/ukcgt/taxyear"
	"github.com/tsiemens/ukcgt/util"
)

type _PrintHelper struct {
	PrintAllDecimals bool
}

func (h _PrintHelper) MoneyStr(m amount.Money) string {
	if h.PrintAllDecimals {
		return m.String()
	}
	return m.Format()
}

func (h _PrintHelper) PlusMinus(m amount.Money, showPlus bool) string {
	plus := ""
	if showPlus && m.IsPositive() {
		plus = "+"
	}
	return plus + h.MoneyStr(m)
}

func strOrDash(useStr bool, str string) string {
	return util.Tern(useStr, str, "-")
}

type RenderTable struct {
	Header []string
	Rows   [][]string
	Footer []string
	Notes  []string
	Errors []error
}

// DisposalRow is one disposal as reported, whatever kind of asset it was of.
type DisposalRow struct {
	Date      date.Date
	Quantity  amount.Quantity
	Proceeds  amount.Money
	CostBasis amount.Money
	// Unset for non-fungible assets, which are not matched.
	SameDay   util.Optional[amount.Quantity]
	ThirtyDay util.Optional[amount.Quantity]
	Pool      util.Optional[amount.Quantity]
}

func (r DisposalRow) Gain() amount.Money {
	gain, err := r.Proceeds.Minus(r.CostBasis)
	util.Assertf(err == nil, "%v", err)
	return gain
}

func DisposalRowsOfLedger(ledger *sharepool.Ledger) []DisposalRow {
	rows := []DisposalRow{}
	for _, d := range ledger.Disposals().Processed() {
		rows = append(rows, DisposalRow{
			Date:      d.Date,
			Quantity:  d.Quantity,
			Proceeds:  d.Proceeds,
			CostBasis: d.CostBasis,
			SameDay:   util.NewOptional(d.SameDayQuantity()),
			ThirtyDay: util.NewOptional(d.ThirtyDayQuantity()),
			Pool:      util.NewOptional(d.Section104PoolQuantity()),
		})
	}
	return rows
}

func DisposalRowsOfNonFungible(disposals []nonfungible.DisposedOf) []DisposalRow {
	rows := []DisposalRow{}
	for _, d := range disposals {
		rows = append(rows, DisposalRow{
			Date:      d.Date,
			Quantity:  amount.NewQuantityFromInt(1),
			Proceeds:  d.Proceeds,
			CostBasis: d.CostBasis,
		})
	}
	return rows
}

func optQtyStr(q util.Optional[amount.Quantity]) string {
	if !q.Present() {
		return "-"
	}
	v := q.MustGet()
	return strOrDash(!v.IsZero(), v.String())
}

func RenderDisposalsTableModel(rows []DisposalRow, renderFullDollarValues bool) *RenderTable {
	table := &RenderTable{}
	table.Header = []string{"Date", "Tax Year", "Quantity", "Proceeds", "Cost Basis", "Gain",
		"Same Day", "30 Day", "Pool"}

	ph := _PrintHelper{PrintAllDecimals: renderFullDollarValues}

	sawThirtyDay := false
	var total util.Optional[amount.Money]
	yearTotals := map[int]amount.Money{}
	for _, r := range rows {
		gain := r.Gain()
		year := date.TaxYearOf(r.Date)
		table.Rows = append(table.Rows, []string{
			r.Date.String(), year.String(), r.Quantity.String(),
			ph.MoneyStr(r.Proceeds), ph.MoneyStr(r.CostBasis), ph.PlusMinus(gain, false),
			optQtyStr(r.SameDay), optQtyStr(r.ThirtyDay), optQtyStr(r.Pool),
		})
		if r.ThirtyDay.Present() {
			v := r.ThirtyDay.MustGet()
			sawThirtyDay = sawThirtyDay || v.IsPositive()
		}

		sum, err := total.GetOr(gain.Zero()).Plus(gain)
		util.Assertf(err == nil, "%v", err)
		total.Set(sum)
		yearTotal, ok := yearTotals[year.StartYear]
		if !ok {
			yearTotal = gain.Zero()
		}
		yearTotals[year.StartYear], err = yearTotal.Plus(gain)
		util.Assertf(err == nil, "%v", err)
	}

	// Footer
	if total.Present() {
		years := util.SortedIntMapKeys(yearTotals)
		labels := []string{"Total"}
		vals := []string{ph.PlusMinus(total.MustGet(), false)}
		if len(years) > 1 {
			for _, y := range years {
				labels = append(labels, date.TaxYear{StartYear: y}.String())
				vals = append(vals, ph.PlusMinus(yearTotals[y], false))
			}
		}
		table.Footer = []string{"", "", "", "", strings.Join(labels, "\n"), strings.Join(vals, "\n"),
			"", "", ""}
	}

	if sawThirtyDay {
		table.Notes = append(table.Notes,
			" 30 Day = matched with acquisitions made in the 30 days after the disposal")
	}
	return table
}

/*
Generates a RenderTable that will render out to this:
| Tax Year  | Currency | Disposals | Proceeds | Cost Basis | Gain    |
+-----------+----------+-----------+----------+------------+---------+
| 2015-2016 | GBP      | 2         | xxxx.xx  | xxxx.xx    | xxxx.xx |
*/
func RenderTaxYearSummaryModel(years []taxyear.YearSummary, renderFullDollarValues bool) *RenderTable {
	table := &RenderTable{}
	table.Header = []string{"Tax Year", "Currency", "Disposals", "Proceeds", "Cost Basis", "Gain"}

	ph := _PrintHelper{PrintAllDecimals: renderFullDollarValues}

	totals := util.NewDefaultMap(taxyear.ZeroCapitalGain)
	for _, y := range years {
		table.Rows = append(table.Rows, []string{
			y.Year.String(), y.Currency.String(), fmt.Sprintf("%d", y.Disposals),
			ph.MoneyStr(y.CapitalGain.Proceeds), ph.MoneyStr(y.CapitalGain.CostBasis),
			ph.PlusMinus(y.Gain(), false),
		})
		total, err := totals.Get(y.Currency).Plus(y.CapitalGain)
		util.Assertf(err == nil, "%v", err)
		totals.Set(y.Currency, total)
	}

	totalsByCurrency := totals.EjectMap()
	currencies := util.MapKeys(totalsByCurrency)
	sort.Slice(currencies, func(i, j int) bool { return currencies[i] < currencies[j] })
	for _, c := range currencies {
		total := totalsByCurrency[c]
		gain, err := total.Difference()
		util.Assertf(err == nil, "%v", err)
		table.Rows = append(table.Rows, []string{
			"Since inception", c.String(), "",
			ph.MoneyStr(total.Proceeds), ph.MoneyStr(total.CostBasis),
			ph.PlusMinus(gain, false),
		})
	}
	return table
}
