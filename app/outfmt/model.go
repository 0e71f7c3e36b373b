package outfmt

import (
	"github.com/tsiemens/ukcgt/portfolio"
)

type OutputType int

const (
	Disposals OutputType = iota
	TaxYearSummary
)

type ReportWriter interface {
	PrintRenderTable(outType OutputType, name string, tableModel *portfolio.RenderTable) error
}

// fileSafe makes an asset name usable in a file or sheet name.
func fileSafe(name string) string {
	out := []rune{}
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '[', ']', '"', '<', '>', '|':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
