package common

import (
	"time"
	_ "time/tzdata"
)

var (
	NowFunc = time.Now

	// Location is the zone whose calendar decides what today is.
	Location = time.UTC
)

// SetLocation switches the zone of Today, an empty name keeps UTC.
func SetLocation(name string) error {
	if name == "" {
		Location = time.UTC
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	Location = loc
	return nil
}

// DayOf strips the time of day. The calendar day is taken in t's own zone and stored as UTC midnight,
// validity windows in this service are compared by calendar day.
func DayOf(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayPtrOf is DayOf for optional dates.
func DayPtrOf(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := DayOf(*t)
	return &d
}

func Today() time.Time {
	return DayOf(NowFunc().In(Location))
}

func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
