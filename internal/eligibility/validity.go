package eligibility

import (
	"sort"
	"time"
)

// RegularityLifetimeYears is how long a regular standing stays usable before extensions.
const RegularityLifetimeYears = 2

// Validity is the derived validity window of a regularity.
type Validity struct {
	ClosingDate  time.Time
	TwoYearMark  time.Time
	Deadline     time.Time
	Extended     bool
	AttemptsUsed int
	AttemptsLeft int
}

// Expired reports whether an exam on the given date falls outside the window.
func (v Validity) Expired(on time.Time) bool {
	return DateOnly(on).After(v.Deadline)
}

// CapReached reports whether no counted attempts remain.
func (v Validity) CapReached() bool {
	return v.AttemptsUsed >= MaxCountedAttempts
}

// AddYears shifts a date by whole years. Feb 29 lands on Feb 28 when the target
// year is not a leap year.
func AddYears(t time.Time, years int) time.Time {
	y, m, d := t.Date()
	target := y + years
	if m == time.February && d == 29 && !isLeap(target) {
		d = 28
	}
	return time.Date(target, m, d, 0, 0, 0, 0, time.UTC)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// ComputeValidity derives the deadline and attempt usage of a regularity.
//
// The deadline is two years after the closing date, extended to the earliest scheduled
// exam board on or after that mark when the calendar has one. Attempts are counted when
// they belong to the regularity's subject, are charged by their outcome, and fall within
// [closing date, deadline].
func ComputeValidity(reg Regularity, calendar []time.Time, attempts []Attempt) Validity {
	closing := DateOnly(reg.ClosingDate)
	mark := AddYears(closing, RegularityLifetimeYears)

	validity := Validity{
		ClosingDate: closing,
		TwoYearMark: mark,
		Deadline:    mark,
	}

	if next, ok := nextBoardOnOrAfter(calendar, mark); ok {
		validity.Deadline = next
		validity.Extended = next.After(mark)
	}

	for _, attempt := range attempts {
		if attempt.SubjectID != reg.SubjectID || !attempt.Outcome.CountsAttempt() {
			continue
		}
		day := DateOnly(attempt.Date)
		if day.Before(closing) || day.After(validity.Deadline) {
			continue
		}
		validity.AttemptsUsed++
	}

	validity.AttemptsLeft = MaxCountedAttempts - validity.AttemptsUsed
	if validity.AttemptsLeft < 0 {
		validity.AttemptsLeft = 0
	}

	return validity
}

func nextBoardOnOrAfter(calendar []time.Time, mark time.Time) (time.Time, bool) {
	dates := make([]time.Time, 0, len(calendar))
	for _, date := range calendar {
		day := DateOnly(date)
		if !day.Before(mark) {
			dates = append(dates, day)
		}
	}
	if len(dates) == 0 {
		return time.Time{}, false
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates[0], true
}
