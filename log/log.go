package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// This won't be as verbose as tracing, which is likely for testing only.
var VerboseEnabled = false

var logger = newLogger(os.Stderr)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.TraceLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableQuote:     true,
	})
	return l
}

// Logger exposes the shared logger, eg. to attach structured fields.
func Logger() *logrus.Logger {
	return logger
}

func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func Fverbosef(w io.Writer, format string, v ...interface{}) {
	if VerboseEnabled {
		fmt.Fprintf(w, format, v...)
	}
}

func Verbosef(format string, v ...interface{}) {
	if VerboseEnabled {
		logger.Infof(format, v...)
	}
}

var traceOnce sync.Once

// Tags enabled. Value ignored
var TraceSetting = map[string]bool{}

// Supply the TRACE environment variable with a comma-separated list of
// trace tags to enable.
func LoadTraceSetting() {
	traceVar := os.Getenv("TRACE")
	if traceVar != "" {
		tags := strings.Split(traceVar, ",")
		for _, tag := range tags {
			TraceSetting[strings.TrimSpace(tag)] = true
		}
	}
}

func MaybeLoadTraceSetting() {
	traceOnce.Do(LoadTraceSetting)
}

func TraceEnabled(tag string) bool {
	MaybeLoadTraceSetting()
	_, ok := TraceSetting[tag]
	return ok
}

func Tracef(tag string, format string, v ...interface{}) {
	if TraceEnabled(tag) {
		logger.WithField("tag", tag).Tracef(format, v...)
	}
}

func Warnf(format string, v ...interface{}) {
	logger.Warnf(format, v...)
}

type ErrorPrinter interface {
	Ln(v ...interface{})
	F(format string, v ...interface{})
}

// The default ErrorPrinter
type StderrErrorPrinter struct{}

func (p *StderrErrorPrinter) Ln(v ...interface{}) {
	logger.Error(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (p *StderrErrorPrinter) F(format string, v ...interface{}) {
	logger.Errorf(strings.TrimSuffix(format, "\n"), v...)
}

// Collects errors rather than printing them. Used by tests and the report.
type BufferedErrorPrinter struct {
	mu     sync.Mutex
	Errors []string
}

func (p *BufferedErrorPrinter) Ln(v ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Errors = append(p.Errors, strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (p *BufferedErrorPrinter) F(format string, v ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Errors = append(p.Errors, strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
}
