package audit

import (
	"fmt"
	"time"
)

// fiscalYearStartMonth opens a new fiscal year on its first day.
const fiscalYearStartMonth = time.October

// DeriveFiscalPeriod labels a date as FY{yy}-P{pp}. The fiscal year is named
// after the calendar year it ends in; October is period 01. A zero date has
// no period and yields "".
func DeriveFiscalPeriod(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	year := t.Year()
	month := int(t.Month())
	start := int(fiscalYearStartMonth)

	if month >= start {
		year++
	}
	period := (month-start+12)%12 + 1

	return fmt.Sprintf("FY%02d-P%02d", year%100, period)
}

// daysBefore returns the day n days before day.
func daysBefore(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, -n)
}

// dayOf strips the clock and zone so dates compare as calendar days.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
