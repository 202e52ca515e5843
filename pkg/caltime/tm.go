package caltime

import (
	"fmt"
	"io"
	"time"
)

// YearBase is the offset between the Anno Domini year and Tm.Year.
// The Anno Domini year is tm.Year + YearBase.
const YearBase = 1900

// Tm is a broken-down calendar record in the layout of C's struct tm.
type Tm struct {
	Sec  int // seconds [0, 60]
	Min  int // minutes [0, 59]
	Hour int // hours [0, 23]
	MDay int // day of month [1, 31]
	Mon  int // month [0, 11]
	Year int // years since YearBase
	WDay int // day of week [0, 6], Sunday = 0
	YDay int // day of year [0, 365], -1 when unknown

	// IsDST reports daylight saving time. It is carried, never resolved.
	IsDST bool
}

var (
	monthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	dayNames   = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
)

// String renders the record as "Www Mmm dd hh:mm:ss yyyy", the asctime
// layout without the trailing newline.
func (tm Tm) String() string {
	return fmt.Sprintf("%.3s %.3s%3d %.2d:%.2d:%.2d %d",
		dayName(tm.WDay), monthName(tm.Mon), tm.MDay,
		tm.Hour, tm.Min, tm.Sec, tm.Year+YearBase)
}

// WriteTo writes the String form of tm to w.
func (tm Tm) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, tm.String())
	return int64(n), err
}

// AnnoDomini returns the calendar year.
func (tm Tm) AnnoDomini() int {
	return tm.Year + YearBase
}

// Time returns the wall clock fields of tm as a time.Time in UTC.
// No zone conversion is applied.
func (tm Tm) Time() time.Time {
	return time.Date(tm.Year+YearBase, time.Month(tm.Mon+1), tm.MDay,
		tm.Hour, tm.Min, tm.Sec, 0, time.UTC)
}

// FromTime takes the wall clock fields of t in its own location.
func FromTime(t time.Time, isDST bool) Tm {
	return Tm{
		Sec:   t.Second(),
		Min:   t.Minute(),
		Hour:  t.Hour(),
		MDay:  t.Day(),
		Mon:   int(t.Month()) - 1,
		Year:  t.Year() - YearBase,
		WDay:  int(t.Weekday()),
		YDay:  t.YearDay() - 1,
		IsDST: isDST,
	}
}

func dayName(wday int) string {
	if wday < 0 || wday >= len(dayNames) {
		return "???"
	}
	return dayNames[wday]
}

func monthName(mon int) string {
	if mon < 0 || mon >= len(monthNames) {
		return "???"
	}
	return monthNames[mon]
}
