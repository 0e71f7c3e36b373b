package sharepool

import (
	"fmt"

	"github.com/tsiemens/ukcgt/amount"
	"github.com/tsiemens/ukcgt/date"
)

// InsufficientQuantityError is returned when disposing of more than is held.
type InsufficientQuantityError struct {
	Date      date.Date
	Requested amount.Quantity
	Available amount.Quantity
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("Disposal on %s of %s is more than the available quantity (%s)",
		e.Date, e.Requested, e.Available)
}

// InvalidQuantityError is returned for negative quantities, and for
// acquisitions of nothing.
type InvalidQuantityError struct {
	Action   string
	Date     date.Date
	Quantity amount.Quantity
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("Invalid %s on %s: quantity %s", e.Action, e.Date, e.Quantity)
}
