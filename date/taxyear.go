package date

import (
	"fmt"
	"time"
)

// UK tax years start on the 6th of April.
const (
	taxYearStartMonth = time.April
	taxYearStartDay   = 6
)

// TaxYear identifies a UK tax year by the calendar year it starts in.
type TaxYear struct {
	StartYear int
}

func TaxYearOf(d Date) TaxYear {
	year, month, day := d.Parts()
	if month < taxYearStartMonth || (month == taxYearStartMonth && day < taxYearStartDay) {
		return TaxYear{StartYear: year - 1}
	}
	return TaxYear{StartYear: year}
}

func (y TaxYear) FirstDay() Date {
	return New(uint32(y.StartYear), taxYearStartMonth, taxYearStartDay)
}

func (y TaxYear) LastDay() Date {
	return New(uint32(y.StartYear+1), taxYearStartMonth, taxYearStartDay-1)
}

// String returns the id form, eg. "2015-2016"
func (y TaxYear) String() string {
	return fmt.Sprintf("%d-%d", y.StartYear, y.StartYear+1)
}

func ParseTaxYear(id string) (TaxYear, error) {
	var start, end int
	if _, err := fmt.Sscanf(id, "%d-%d", &start, &end); err != nil {
		return TaxYear{}, fmt.Errorf("Invalid tax year %q: %v", id, err)
	}
	if end != start+1 {
		return TaxYear{}, fmt.Errorf("Invalid tax year %q: years are not consecutive", id)
	}
	return TaxYear{StartYear: start}, nil
}
