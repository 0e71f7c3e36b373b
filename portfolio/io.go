package portfolio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tsiemens/ukcgt/amount"
	"github.com/tsiemens/ukcgt/asset"
	"github.com/tsiemens/ukcgt/date"
	"github.com/tsiemens/ukcgt/log"
	"github.com/tsiemens/ukcgt/util"
)

const DefaultDateFormat = date.DefaultFormat

var CsvDateFormat string = DefaultDateFormat

type ColParser func(string, *rawTx) error

// rawTx accumulates the columns of a row, which can come in any order.
type rawTx struct {
	tx          *Tx
	symbol      string
	nonFungible bool
	amount      amount.Quantity
	hasAmount   bool
	currency    amount.Currency
}

var colParserMap = map[string]ColParser{
	"date":         parseDate,
	"asset":        parseAsset,
	"action":       parseAction,
	"quantity":     parseQuantity,
	"amount":       parseAmount,
	"currency":     parseCurrency,
	"non-fungible": parseNonFungible,
	"memo":         parseMemo,
}

// Accepted spellings of the column names.
var colAliases = map[string]string{
	"security":    "asset",
	"symbol":      "asset",
	"shares":      "quantity",
	"nft":         "non-fungible",
	"nonfungible": "non-fungible",
}

var ColNames []string

func init() {
	ColNames = util.SortedStringMapKeys(colParserMap)
}

func CheckTxSanity(tx *Tx) error {
	if tx.Asset.Symbol == "" {
		return fmt.Errorf("Transaction has no asset")
	} else if tx.Date.IsZero() {
		return fmt.Errorf("Transaction has no date")
	} else if tx.Action == NO_ACTION {
		return fmt.Errorf("Transaction has no action (Acquire, Dispose)")
	}
	if tx.Asset.NonFungible {
		if !tx.Quantity.IsZero() && !tx.Quantity.Equal(amount.NewQuantityFromInt(1)) {
			return fmt.Errorf("Non-fungible asset %s has a quantity of %s", tx.Asset.Symbol, tx.Quantity)
		}
	} else if tx.Quantity.IsNegative() || (tx.Action == ACQUIRE && tx.Quantity.IsZero()) {
		return fmt.Errorf("Invalid quantity %s", tx.Quantity)
	}
	if tx.Amount.IsNegative() {
		return fmt.Errorf("Amount %s is negative", tx.Amount)
	}
	return nil
}

func (r *rawTx) finish() error {
	a, err := asset.New(r.symbol, r.nonFungible)
	if err != nil {
		return err
	}
	r.tx.Asset = a
	if r.nonFungible && r.tx.Quantity.IsZero() {
		r.tx.Quantity = amount.NewQuantityFromInt(1)
	}
	if !r.hasAmount {
		return fmt.Errorf("Transaction has no amount")
	}
	r.tx.Amount = amount.NewMoney(r.amount, r.currency)
	return CheckTxSanity(r.tx)
}

// ParseTxCsv reads the transactions of a CSV file. desc names the source in
// errors. initialReadIndex is the ReadIndex of the first row.
func ParseTxCsv(reader io.Reader, initialReadIndex uint32, desc string) ([]*Tx, error) {
	csvR := csv.NewReader(reader)
	csvR.FieldsPerRecord = -1
	records, err := csvR.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("Failed to parse CSV file %s: %v", desc, err)
	}
	return parseRecords(records, initialReadIndex, desc)
}

// ParseTxXlsx reads the transactions of the first sheet of a workbook.
func ParseTxXlsx(reader io.Reader, initialReadIndex uint32, desc string) ([]*Tx, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("Failed to open workbook %s: %v", desc, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("No sheets found in %s", desc)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("Failed to read sheet %q of %s: %v", sheets[0], desc, err)
	}
	return parseRecords(rows, initialReadIndex, fmt.Sprintf("%s:%s", desc, sheets[0]))
}

func columnParser(col string) (ColParser, bool) {
	sanCol := strings.TrimSpace(strings.ToLower(col))
	if alias, ok := colAliases[sanCol]; ok {
		sanCol = alias
	}
	parser, ok := colParserMap[sanCol]
	return parser, ok
}

func parseRecords(records [][]string, initialReadIndex uint32, desc string) ([]*Tx, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("No rows found in %s", desc)
	}

	header := records[0]
	colParsers := make([]ColParser, len(header))
	for i, col := range header {
		if parser, ok := columnParser(col); ok {
			colParsers[i] = parser
		} else {
			log.Warnf("Unrecognized column %q in %s", col, desc)
			colParsers[i] = parseNothing
		}
	}

	txs := make([]*Tx, 0, len(records)-1)
	readIndex := initialReadIndex
	for i, record := range records[1:] {
		if isBlankRecord(record) {
			continue
		}
		raw := &rawTx{tx: &Tx{ReadIndex: readIndex}, currency: amount.GBP}
		for j, col := range record {
			if j >= len(colParsers) {
				break
			}
			if err := colParsers[j](strings.TrimSpace(col), raw); err != nil {
				return nil, fmt.Errorf("Error parsing %s at line:col %d:%d: %v", desc, i+2, j+1, err)
			}
		}
		if err := raw.finish(); err != nil {
			return nil, fmt.Errorf("Error parsing %s at line %d: %v", desc, i+2, err)
		}
		txs = append(txs, raw.tx)
		readIndex++
	}
	return txs, nil
}

func isBlankRecord(record []string) bool {
	for _, col := range record {
		if strings.TrimSpace(col) != "" {
			return false
		}
	}
	return true
}

func parseNothing(data string, raw *rawTx) error {
	return nil
}

func parseAsset(data string, raw *rawTx) error {
	raw.symbol = data
	return nil
}

func parseDate(data string, raw *rawTx) error {
	d, err := date.Parse(CsvDateFormat, data)
	if err != nil {
		// Workbook dates are read raw, as serial day numbers.
		serial, serialErr := strconv.ParseFloat(data, 64)
		if serialErr != nil {
			return err
		}
		t, serialErr := excelize.ExcelDateToTime(serial, false)
		if serialErr != nil {
			return err
		}
		d = date.New(uint32(t.Year()), t.Month(), uint32(t.Day()))
	}
	raw.tx.Date = d
	return nil
}

func parseAction(data string, raw *rawTx) error {
	var action TxAction = NO_ACTION
	switch strings.ToLower(data) {
	case "acquire", "buy":
		action = ACQUIRE
	case "dispose", "sell":
		action = DISPOSE
	default:
		return fmt.Errorf("Invalid action: '%s'", data)
	}
	raw.tx.Action = action
	return nil
}

func parseQuantity(data string, raw *rawTx) error {
	if data == "" {
		return nil
	}
	q, err := amount.NewQuantityFromString(data)
	if err != nil {
		return fmt.Errorf("Error parsing quantity: %v", err)
	}
	raw.tx.Quantity = q
	return nil
}

func parseAmount(data string, raw *rawTx) error {
	q, err := amount.NewQuantityFromString(data)
	if err != nil {
		return fmt.Errorf("Error parsing amount: %v", err)
	}
	raw.amount = q
	raw.hasAmount = true
	return nil
}

func parseCurrency(data string, raw *rawTx) error {
	if data == "" {
		return nil
	}
	c, err := amount.ParseCurrency(data)
	if err != nil {
		return err
	}
	raw.currency = c
	return nil
}

func parseNonFungible(data string, raw *rawTx) error {
	switch strings.ToLower(data) {
	case "", "0", "n", "no", "false":
		raw.nonFungible = false
	case "1", "y", "yes", "true", "x":
		raw.nonFungible = true
	default:
		return fmt.Errorf("Invalid non-fungible value: '%s'", data)
	}
	return nil
}

func parseMemo(data string, raw *rawTx) error {
	raw.tx.Memo = data
	return nil
}
