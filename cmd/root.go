package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tsiemens/ukcgt/app"
	"github.com/tsiemens/ukcgt/app/outfmt"
	"github.com/tsiemens/ukcgt/date"
	"github.com/tsiemens/ukcgt/log"
	ptf "github.com/tsiemens/ukcgt/portfolio"
)

var EnvFile string
var StorePath string
var DateFormat string
var Workers int
var MaxRetries int
var CsvOutputDir string
var XlsxOutputFile string
var PrintAllDecimals bool

func openReaders(args []string) ([]app.DescribedReader, func(), error) {
	readers := make([]app.DescribedReader, 0, len(args))
	closeAll := func() {
		for _, r := range readers {
			r.Reader.(*os.File).Close()
		}
	}
	for _, name := range args {
		fp, err := os.Open(name)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("Error opening %s: %w", name, err)
		}
		readers = append(readers, app.DescribedReader{Desc: name, Reader: fp})
	}
	return readers, closeAll, nil
}

// applyFlags overrides the loaded config with the flags set on the command
// line.
func applyFlags(cmd *cobra.Command, cfg *app.Config) {
	changed := func(name string) bool {
		f := cmd.Flag(name)
		return f != nil && f.Changed
	}
	if changed("store") {
		cfg.StorePath = StorePath
	}
	if changed("date-fmt") {
		cfg.DateFormat = DateFormat
	}
	if changed("workers") {
		cfg.Workers = Workers
	}
	if changed("max-retries") {
		cfg.MaxRetries = MaxRetries
	}
	if changed("csv-output-dir") {
		cfg.OutputDir = CsvOutputDir
	}
	cfg.PrintAllDecimals = PrintAllDecimals
}

func runRootCmd(cmd *cobra.Command, args []string) {
	errPrinter := &log.StderrErrorPrinter{}

	cfg, err := app.LoadConfig(EnvFile)
	if err != nil {
		errPrinter.Ln("Error:", err)
		os.Exit(1)
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		errPrinter.Ln("Error:", err)
		os.Exit(1)
	}

	readers, closeReaders, err := openReaders(args)
	if err != nil {
		errPrinter.Ln(err)
		os.Exit(1)
	}
	defer closeReaders()

	var writer outfmt.ReportWriter
	var xlsxWriter *outfmt.XLSXWriter
	switch {
	case XlsxOutputFile != "":
		xlsxWriter = outfmt.NewXLSXWriter(XlsxOutputFile)
		writer = xlsxWriter
	case cmd.Flags().Changed("csv-output-dir"):
		writer, err = outfmt.NewCSVWriter(cfg.OutputDir)
		if err != nil {
			errPrinter.Ln("Error:", err)
			os.Exit(1)
		}
	default:
		writer = outfmt.NewSTDWriter(os.Stdout)
	}

	retErr := app.RunApp(context.Background(), readers, cfg, writer, errPrinter)
	if xlsxWriter != nil {
		if err := xlsxWriter.Save(); err != nil {
			errPrinter.Ln("Error:", err)
			retErr = err
		}
	}
	if retErr != nil {
		os.Exit(1)
	}
}

func cmdName() string {
	binName := os.Args[0]
	return filepath.Base(binName)
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   cmdName() + " [CSV_OR_XLSX_FILE ...]",
	Short: "UK capital gains tax calculation tool",
	Long: fmt.Sprintf(
		`A cli tool which computes the cost basis and gain of disposals under the
UK share matching rules (same day, 30 days, section 104 pool), and totals them
per tax year.

Each CSV (or the first sheet of each xlsx workbook) provided should contain a
header with these column names:
%s
The currency column is optional, and defaults to GBP. Rows marked
non-fungible are held whole, and have no share matching.

Transactions are recorded in an event log. With --store, the log is kept in a
file, and later runs add to it.
 `, strings.Join(ptf.ColNames, ", ")),
	Run:     runRootCmd,
	Args:    cobra.MinimumNArgs(1),
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags, which are global to the app cli
	RootCmd.PersistentFlags().BoolVarP(&log.VerboseEnabled, "verbose", "v", false,
		"Print verbose output")
	RootCmd.PersistentFlags().StringVar(&EnvFile, "env-file", "",
		"Load configuration variables from this file (default: .env, if present)")
	RootCmd.PersistentFlags().StringVar(&DateFormat, "date-fmt", date.DefaultFormat,
		"Format of how dates appear in the csv file. Must represent Jan 2, 2006")
	RootCmd.Flags().StringVarP(&StorePath, "store", "s", "",
		"Event log file to read and append to (default: in memory)")
	RootCmd.Flags().IntVarP(&Workers, "workers", "j", 0,
		"Number of assets to process in parallel (default: number of CPUs)")
	RootCmd.Flags().IntVar(&MaxRetries, "max-retries", app.DefaultMaxRetries,
		"Times to retry a command which lost a race for an aggregate, per worker")
	RootCmd.Flags().StringVarP(&CsvOutputDir, "csv-output-dir", "d", "",
		"Write tables to CSV files in this directory instead of printing them")
	RootCmd.Flags().StringVarP(&XlsxOutputFile, "xlsx-output", "x", "",
		"Write tables as sheets of this xlsx workbook instead of printing them")
	RootCmd.Flags().BoolVar(&PrintAllDecimals, "print-all-decimals", false,
		"Print money values with all their decimals, with the currency code")
}
