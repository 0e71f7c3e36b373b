package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tsiemens/ukcgt/app/outfmt"
	"github.com/tsiemens/ukcgt/asset"
	"github.com/tsiemens/ukcgt/eventstore"
	"github.com/tsiemens/ukcgt/log"
	ptf "github.com/tsiemens/ukcgt/portfolio"
	"github.com/tsiemens/ukcgt/taxyear"
)

type DescribedReader struct {
	Desc   string
	Reader io.Reader
}

func (r DescribedReader) IsXlsx() bool {
	return strings.HasSuffix(strings.ToLower(r.Desc), ".xlsx")
}

// OpenStore returns the event store named by the config and a function
// releasing it.
func OpenStore(cfg *Config) (eventstore.Store, func() error, error) {
	if cfg.StorePath == "" {
		return eventstore.NewMemStore(), func() error { return nil }, nil
	}
	fs, err := eventstore.OpenFileStore(cfg.StorePath)
	if err != nil {
		return nil, nil, err
	}
	return fs, fs.Close, nil
}

func ReadTxs(readers []DescribedReader) ([]*ptf.Tx, error) {
	allTxs := make([]*ptf.Tx, 0, 20)
	var globalReadIndex uint32 = 0
	for _, r := range readers {
		var txs []*ptf.Tx
		var err error
		if r.IsXlsx() {
			txs, err = ptf.ParseTxXlsx(r.Reader, globalReadIndex, r.Desc)
		} else {
			txs, err = ptf.ParseTxCsv(r.Reader, globalReadIndex, r.Desc)
		}
		if err != nil {
			return nil, err
		}
		globalReadIndex += uint32(len(txs))
		allTxs = append(allTxs, txs...)
	}
	return ptf.SortTxs(allTxs), nil
}

type AppRenderResult struct {
	AssetTables  map[asset.Asset]*ptf.RenderTable
	TaxYearTable *ptf.RenderTable
}

// SortedAssets returns the assets of the result ordered by name.
func (r *AppRenderResult) SortedAssets() []asset.Asset {
	assets := make([]asset.Asset, 0, len(r.AssetTables))
	for a := range r.AssetTables {
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool {
		return assets[i].String() < assets[j].String()
	})
	return assets
}

// processAsset applies the transactions of one asset in order, stopping at
// the first failure. The table shows the state reached either way.
func processAsset(
	ctx context.Context, runner *Runner, a asset.Asset, txs []*ptf.Tx,
	printAllDecimals bool) (*ptf.RenderTable, error) {

	var applyErr error
	for _, tx := range txs {
		if err := runner.Apply(ctx, tx); err != nil {
			applyErr = err
			break
		}
	}
	rows, err := runner.DisposalRows(ctx, a)
	if err != nil {
		return nil, err
	}
	table := ptf.RenderDisposalsTableModel(rows, printAllDecimals)
	if applyErr != nil {
		table.Errors = append(table.Errors, applyErr)
	}
	return table, nil
}

// RunAppToRenderModel processes all transactions into the store and renders
// the per-asset disposals and the tax year summary. Assets are processed
// concurrently, up to cfg.Workers at a time.
func RunAppToRenderModel(
	ctx context.Context, readers []DescribedReader, store eventstore.Store,
	cfg *Config) (*AppRenderResult, error) {

	allTxs, err := ReadTxs(readers)
	if err != nil {
		return nil, err
	}
	if err := ptf.CheckAssetTypes(allTxs); err != nil {
		return nil, err
	}
	txsByAsset := ptf.SplitTxsByAsset(allTxs)

	runner := NewRunner(store, cfg.CommandRetries())
	result := &AppRenderResult{AssetTables: make(map[asset.Asset]*ptf.RenderTable)}
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(cfg.Workers)
	for a, assetTxs := range txsByAsset {
		a, assetTxs := a, assetTxs
		g.Go(func() error {
			log.Verbosef("Processing %d transactions of %s", len(assetTxs), a)
			table, err := processAsset(ctx, runner, a, assetTxs, cfg.PrintAllDecimals)
			if err != nil {
				return fmt.Errorf("%s: %w", a, err)
			}
			mu.Lock()
			defer mu.Unlock()
			result.AssetTables[a] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary, err := taxyear.ProjectSummary(ctx, store)
	if err != nil {
		return nil, err
	}
	result.TaxYearTable = ptf.RenderTaxYearSummaryModel(summary.Years(), cfg.PrintAllDecimals)
	return result, nil
}

func RunApp(
	ctx context.Context,
	readers []DescribedReader,
	cfg *Config,
	writer outfmt.ReportWriter,
	errPrinter log.ErrorPrinter) (retErr error) {

	ptf.CsvDateFormat = cfg.DateFormat

	store, closeStore, err := OpenStore(cfg)
	if err != nil {
		errPrinter.Ln("Error:", err)
		return err
	}
	defer func() {
		if err := closeStore(); err != nil && retErr == nil {
			errPrinter.Ln("Error:", err)
			retErr = err
		}
	}()

	result, err := RunAppToRenderModel(ctx, readers, store, cfg)
	if err != nil {
		errPrinter.Ln("Error:", err)
		return err
	}

	for _, a := range result.SortedAssets() {
		table := result.AssetTables[a]
		if len(table.Errors) > 0 {
			retErr = table.Errors[0]
		}
		if err := writer.PrintRenderTable(outfmt.Disposals, a.String(), table); err != nil {
			errPrinter.F("Error printing table for %s: %v\n", a, err)
			retErr = err
		}
	}
	if err := writer.PrintRenderTable(outfmt.TaxYearSummary, "", result.TaxYearTable); err != nil {
		errPrinter.F("Error printing tax year summary: %v\n", err)
		retErr = err
	}
	return
}
