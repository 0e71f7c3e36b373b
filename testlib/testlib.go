// Package testlib holds assertions shared by the package tests.
package testlib

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/tsiemens/ukcgt/amount"
)

// regex can be pattern string or Regexp
func RqPanicsWithRegexp(t *testing.T, regex interface{}, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			require.Regexp(t, regex, r)
		} else {
			require.FailNow(t, "Function did not panic")
		}
	}()
	fn()
}

// Use this class instead of require.New if any type needing comparison has
// either a custom String method or Equal method (Decimal for example).
// Quantity, Money and Date are compared by their Equal methods.
type CustomRequire struct {
	t       *testing.T
	options cmp.Options
}

func NewCustomRequire(t *testing.T, opts ...cmp.Option) *CustomRequire {
	options := cmp.Options{
		cmp.Comparer(func(a, b amount.Quantity) bool { return a.Equal(b) }),
	}
	return &CustomRequire{t, append(options, opts...)}
}

func (rq *CustomRequire) Equal(expected, actual interface{}) {
	diff := cmp.Diff(expected, actual, rq.options)
	require.True(rq.t, diff == "", diff)
}
