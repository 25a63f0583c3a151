package expiry

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// --- Weekly expiry tests ---

func TestNextWeeklyExpiry_MidWeek(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{"Monday", date(2025, time.June, 2), date(2025, time.June, 5)},
		{"Tuesday", date(2025, time.June, 3), date(2025, time.June, 5)},
		{"Wednesday", date(2025, time.June, 4), date(2025, time.June, 5)},
		{"Friday rolls to next week", date(2025, time.June, 6), date(2025, time.June, 12)},
		{"Saturday", date(2025, time.June, 7), date(2025, time.June, 12)},
		{"Sunday", date(2025, time.June, 8), date(2025, time.June, 12)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextWeeklyExpiry(tt.from)
			if !got.Equal(tt.want) {
				t.Errorf("NextWeeklyExpiry(%s) = %s, want %s",
					tt.from.Format("2006-01-02"), got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

// Locks the roll policy: a Thursday reference date gets next week's expiry,
// not same-day.
func TestNextWeeklyExpiry_ThursdayRollsForward(t *testing.T) {
	from := date(2025, time.June, 5) // a Thursday
	want := date(2025, time.June, 12)
	got := NextWeeklyExpiry(from)
	if !got.Equal(want) {
		t.Errorf("Thursday should roll to next week: got %s, want %s",
			got.Format("2006-01-02"), want.Format("2006-01-02"))
	}
}

func TestNextWeeklyExpiry_AlwaysThursday(t *testing.T) {
	from := date(2025, time.January, 1)
	for i := 0; i < 60; i++ {
		got := NextWeeklyExpiry(from.AddDate(0, 0, i))
		if got.Weekday() != time.Thursday {
			t.Fatalf("expiry for %s fell on %s", from.AddDate(0, 0, i).Format("2006-01-02"), got.Weekday())
		}
	}
}

func TestNextWeeklyExpiry_IgnoresTimeOfDay(t *testing.T) {
	evening := time.Date(2025, time.June, 2, 23, 45, 0, 0, time.UTC)
	if got := NextWeeklyExpiry(evening); !got.Equal(date(2025, time.June, 5)) {
		t.Errorf("time of day should not shift the expiry, got %s", got.Format("2006-01-02"))
	}
}

func TestWeeklyExpiries_Sequence(t *testing.T) {
	got := WeeklyExpiries(date(2025, time.June, 2), 4)
	want := []time.Time{
		date(2025, time.June, 5),
		date(2025, time.June, 12),
		date(2025, time.June, 19),
		date(2025, time.June, 26),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d expiries, got %d", len(want), len(got))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("expiry %d = %s, want %s", i, got[i].Format("2006-01-02"), want[i].Format("2006-01-02"))
		}
	}
}

// --- Monthly expiry tests ---

func TestNextMonthlyExpiry(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{"early June 2025", date(2025, time.June, 2), date(2025, time.June, 26)},
		{"after last Thursday", date(2025, time.June, 27), date(2025, time.July, 31)},
		{"on last Thursday rolls", date(2025, time.June, 26), date(2025, time.July, 31)},
		{"December rolls into January", date(2024, time.December, 27), date(2025, time.January, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextMonthlyExpiry(tt.from)
			if !got.Equal(tt.want) {
				t.Errorf("NextMonthlyExpiry(%s) = %s, want %s",
					tt.from.Format("2006-01-02"), got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
			if got.Weekday() != time.Thursday {
				t.Errorf("monthly expiry must be a Thursday, got %s", got.Weekday())
			}
		})
	}
}

// --- Day count tests ---

func TestDaysToExpiry(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{"same day", date(2025, time.June, 5), date(2025, time.June, 5), 0},
		{"one week", date(2025, time.June, 2), date(2025, time.June, 9), 7},
		{"across month end", date(2025, time.June, 28), date(2025, time.July, 3), 5},
		{"past expiry", date(2025, time.June, 10), date(2025, time.June, 5), -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysToExpiry(tt.from, tt.to); got != tt.want {
				t.Errorf("DaysToExpiry = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDaysToExpiry_DateComponentsOnly(t *testing.T) {
	from := time.Date(2025, time.June, 2, 23, 59, 0, 0, time.UTC)
	to := time.Date(2025, time.June, 3, 0, 1, 0, 0, time.UTC)
	if got := DaysToExpiry(from, to); got != 1 {
		t.Errorf("adjacent dates two minutes apart should count 1 day, got %d", got)
	}
}

func TestYearFraction(t *testing.T) {
	if got := YearFraction(365); got.InexactFloat64() != 1 {
		t.Errorf("YearFraction(365) = %s, want 1", got)
	}
	got := YearFraction(7).InexactFloat64()
	want := 7.0 / 365.0
	if diff := got - want; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("YearFraction(7) = %v, want %v", got, want)
	}
	if !YearFraction(0).IsZero() {
		t.Error("YearFraction(0) should be zero")
	}
}
