package eligibility

import (
	"fmt"
	"strings"
)

// Term is the part of the academic year a subject is taught in.
type Term string

// Terms.
const (
	TermAnnual     Term = "ANUAL"
	TermFirstHalf  Term = "1C"
	TermSecondHalf Term = "2C"
)

// ParseTerm normalises and validates a term code.
func ParseTerm(value string) (Term, error) {
	t := Term(strings.ToUpper(strings.TrimSpace(value)))
	switch t {
	case TermAnnual, TermFirstHalf, TermSecondHalf:
		return t, nil
	default:
		return "", fmt.Errorf("unknown term %q", value)
	}
}

// Overlaps reports whether two terms share any weeks. Annual subjects span both halves.
func (t Term) Overlaps(other Term) bool {
	if t == TermAnnual || other == TermAnnual {
		return true
	}
	return t == other
}

// Shift is the time-of-day band a course runs in.
type Shift string

// Shifts.
const (
	ShiftMorning   Shift = "MORNING"
	ShiftAfternoon Shift = "AFTERNOON"
	ShiftEvening   Shift = "EVENING"
)

// Block is a weekly class slot of a subject.
type Block struct {
	SubjectID   uint
	Term        Term
	Shift       Shift
	Weekday     int
	StartMinute int
	EndMinute   int
}

// Conflicts reports whether two blocks collide: same weekday and shift, overlapping terms,
// and overlapping half-open minute ranges.
func (b Block) Conflicts(other Block) bool {
	if b.Weekday != other.Weekday || b.Shift != other.Shift || !b.Term.Overlaps(other.Term) {
		return false
	}
	return b.StartMinute < other.EndMinute && other.StartMinute < b.EndMinute
}

// String renders the block as "Mon 18:00-19:20".
func (b Block) String() string {
	return fmt.Sprintf("%s %s-%s", weekdayName(b.Weekday), clock(b.StartMinute), clock(b.EndMinute))
}

func clock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

func weekdayName(day int) string {
	names := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	if day < 1 || day > len(names) {
		return fmt.Sprintf("day %d", day)
	}
	return names[day-1]
}
