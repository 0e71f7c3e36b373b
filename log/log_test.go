package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTracef(t *testing.T) {
	rq := require.New(t)

	var buf bytes.Buffer
	SetOutput(&buf)
	MaybeLoadTraceSetting()
	TraceSetting["unit"] = true
	defer delete(TraceSetting, "unit")

	Tracef("unit", "reverting %d", 3)
	Tracef("other", "hidden")
	rq.Contains(buf.String(), "reverting 3")
	rq.Contains(buf.String(), "tag=unit")
	rq.NotContains(buf.String(), "hidden")
}

func TestVerbose(t *testing.T) {
	rq := require.New(t)

	var buf bytes.Buffer
	Fverbosef(&buf, "a %s", "b")
	rq.Equal("", buf.String())

	VerboseEnabled = true
	defer func() { VerboseEnabled = false }()
	Fverbosef(&buf, "a %s", "b")
	rq.Equal("a b", buf.String())
}

func TestBufferedErrorPrinter(t *testing.T) {
	rq := require.New(t)

	p := &BufferedErrorPrinter{}
	p.Ln("Error:", "boom")
	p.F("bad %d\n", 2)
	rq.Equal([]string{"Error: boom", "bad 2"}, p.Errors)
}
