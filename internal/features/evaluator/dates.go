package evaluator

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// DaysSince is floor((now - t) / 24h).
func DaysSince(t, now time.Time) int {
	return int(math.Floor(float64(now.Sub(t)) / float64(day)))
}

// DaysUntil is ceil((t - now) / 24h).
func DaysUntil(t, now time.Time) int {
	return int(math.Ceil(float64(t.Sub(now)) / float64(day)))
}

// CivilDate is midnight of t's calendar day in loc.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// CalendarDaysBetween counts calendar days from from's date to to's date in loc.
func CalendarDaysBetween(from, to time.Time, loc *time.Location) int {
	a, b := CivilDate(from, loc), CivilDate(to, loc)
	// dates are UTC-normalised so DST shifts do not skew the division
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au) / day)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// anniversary places month/day in year; Feb 29 falls back to Feb 28 in common years.
func anniversary(year int, month time.Month, dayOfMonth int, loc *time.Location) time.Time {
	if month == time.February && dayOfMonth == 29 && !isLeap(year) {
		dayOfMonth = 28
	}
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, loc)
}

// DaysUntilBirthday returns calendar days from today to the next birthday, 0 when it is today.
// Birth dates are date-only values, so their month and day are read in UTC.
func DaysUntilBirthday(birth, now time.Time, loc *time.Location) int {
	_, bm, bd := birth.UTC().Date()
	today := CivilDate(now, loc)

	next := anniversary(today.Year(), bm, bd, loc)
	if next.Before(today) {
		next = anniversary(today.Year()+1, bm, bd, loc)
	}
	return CalendarDaysBetween(today, next, loc)
}

// FullMonthsBetween counts whole calendar months from from to to in loc.
func FullMonthsBetween(from, to time.Time, loc *time.Location) int {
	if to.Before(from) {
		return 0
	}
	f, t := from.In(loc), to.In(loc)
	months := (t.Year()-f.Year())*12 + int(t.Month()-f.Month())
	if t.Day() < f.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// DaysUntilMonthEnd counts calendar days from today to the last day of this month; 0 on the last day.
func DaysUntilMonthEnd(now time.Time, loc *time.Location) int {
	today := CivilDate(now, loc)
	last := time.Date(today.Year(), today.Month()+1, 0, 0, 0, 0, 0, loc)
	return CalendarDaysBetween(today, last, loc)
}
