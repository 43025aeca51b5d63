package domain

import (
	"fmt"
	"time"
)

// Date is a calendar day in UTC.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// FarFuture is assigned to matches whose timestamp cannot be converted, so
// they never fall on a real target day.
var FarFuture = Date{Year: 2099, Month: time.January, Day: 1}

func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Year: y, Month: m, Day: d}
}

// DateFromUnix converts unix seconds to a UTC date. Zero and timestamps
// outside years 1-9999 yield FarFuture.
func DateFromUnix(ts int64) Date {
	if ts == 0 {
		return FarFuture
	}
	d := DateOf(time.Unix(ts, 0))
	if d.Year < 1 || d.Year > 9999 {
		return FarFuture
	}
	return d
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}
