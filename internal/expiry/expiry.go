// Package expiry computes NIFTY option expiry dates and the day counts the
// pricer consumes. Weekly contracts expire on Thursday, monthly contracts
// on the last Thursday of the month.
//
// Exchange holidays are not modeled: when an expiry Thursday is a trading
// holiday the exchange moves it to the prior session, which this package
// does not know about. Known approximation.
package expiry

import (
	"time"

	"github.com/shopspring/decimal"
)

// Weekday is the exchange's designated expiry weekday.
const Weekday = time.Thursday

var daysPerYear = decimal.NewFromInt(365)

// NextWeeklyExpiry returns the next weekly expiry strictly after from's
// date. When from itself falls on a Thursday the expiry rolls to the next
// week; an intraday cutoff is not modeled. The result is midnight in
// from's location.
func NextWeeklyExpiry(from time.Time) time.Time {
	ahead := (int(Weekday) - int(from.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	y, m, d := from.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, from.Location()).AddDate(0, 0, ahead)
}

// NextMonthlyExpiry returns the last Thursday of from's month, or of the
// next month when that date has already passed (same roll policy as
// NextWeeklyExpiry: the expiry day itself rolls forward).
func NextMonthlyExpiry(from time.Time) time.Time {
	y, m, d := from.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, from.Location())
	candidate := lastThursday(y, m, from.Location())
	if !candidate.After(today) {
		candidate = lastThursday(y, m+1, from.Location())
	}
	return candidate
}

func lastThursday(y int, m time.Month, loc *time.Location) time.Time {
	// Day 0 of the next month is the last day of this one.
	last := time.Date(y, m+1, 0, 0, 0, 0, 0, loc)
	back := (int(last.Weekday()) - int(Weekday) + 7) % 7
	return last.AddDate(0, 0, -back)
}

// WeeklyExpiries lists the next n weekly expiries after from, ascending.
func WeeklyExpiries(from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	cur := from
	for i := 0; i < n; i++ {
		cur = NextWeeklyExpiry(cur)
		out = append(out, cur)
	}
	return out
}

// DaysToExpiry counts whole calendar days between the date components of
// from and expiry. Negative when the expiry is already past.
func DaysToExpiry(from, expiry time.Time) int {
	f := dateOnly(from)
	e := dateOnly(expiry)
	return int(e.Sub(f).Hours() / 24)
}

// YearFraction converts a day count to the year fraction the pricer
// expects, days/365.
func YearFraction(days int) decimal.Decimal {
	return decimal.NewFromInt(int64(days)).Div(daysPerYear)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
