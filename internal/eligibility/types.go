// Package eligibility decides whether a student may enroll in a subject or sit a final exam.
//
// Every function in this package is a pure computation over in-memory snapshots of a
// student's academic history and the curriculum graph. Loading those snapshots, persisting
// decisions and mapping results onto HTTP responses belongs to the service layer.
package eligibility

import (
	"fmt"
	"strings"
	"time"
)

// MaxCountedAttempts is the number of counted exam attempts allowed within a validity window.
const MaxCountedAttempts = 3

// Situation is the outcome recorded for a course attempt.
type Situation string

// Regularity situations.
const (
	SituationPromoted         Situation = "PRO"
	SituationRegular          Situation = "REG"
	SituationApproved         Situation = "APR"
	SituationFailedPracticals Situation = "DTP"
	SituationFailedPartials   Situation = "DPA"
	SituationFreeAbsence      Situation = "LBI"
	SituationDroppedEarly     Situation = "LAT"
)

var situationLabels = map[Situation]string{
	SituationPromoted:         "promoted",
	SituationRegular:          "regular",
	SituationApproved:         "approved",
	SituationFailedPracticals: "failed practicals",
	SituationFailedPartials:   "failed partial exams",
	SituationFreeAbsence:      "dropped for absence",
	SituationDroppedEarly:     "dropped early",
}

// ParseSituation normalises and validates a situation code.
func ParseSituation(value string) (Situation, error) {
	s := Situation(strings.ToUpper(strings.TrimSpace(value)))
	if _, ok := situationLabels[s]; !ok {
		return "", fmt.Errorf("unknown regularity situation %q", value)
	}
	return s, nil
}

// Label returns a human readable name for the situation.
func (s Situation) Label() string {
	if label, ok := situationLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsApproved reports whether the subject counts as passed.
func (s Situation) IsApproved() bool {
	return s == SituationApproved || s == SituationPromoted
}

// IsRegularOrBetter reports whether the situation satisfies a regular-to-enroll requirement.
func (s Situation) IsRegularOrBetter() bool {
	return s == SituationRegular || s.IsApproved()
}

// Kind tags a correlativity edge with the requirement it imposes.
type Kind string

// Correlativity kinds.
const (
	KindRegularToEnroll  Kind = "REGULAR_TO_ENROLL"
	KindApprovedToEnroll Kind = "APPROVED_TO_ENROLL"
	KindApprovedToSit    Kind = "APPROVED_TO_SIT"
)

// ParseKind normalises and validates a correlativity kind.
func ParseKind(value string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(value)))
	switch k {
	case KindRegularToEnroll, KindApprovedToEnroll, KindApprovedToSit:
		return k, nil
	default:
		return "", fmt.Errorf("unknown correlativity kind %q", value)
	}
}

// Satisfied reports whether a prerequisite standing meets the requirement kind.
func (k Kind) Satisfied(standing Situation) bool {
	if k == KindRegularToEnroll {
		return standing.IsRegularOrBetter()
	}
	return standing.IsApproved()
}

// Outcome is the result recorded for an exam board registration.
type Outcome string

// Exam registration outcomes.
const (
	OutcomePending         Outcome = "PENDING"
	OutcomeApproved        Outcome = "APPROVED"
	OutcomeFailed          Outcome = "FAILED"
	OutcomeAbsent          Outcome = "ABSENT"
	OutcomeAbsentJustified Outcome = "ABSENT_JUSTIFIED"
)

// ParseOutcome normalises and validates an exam outcome.
func ParseOutcome(value string) (Outcome, error) {
	o := Outcome(strings.ToUpper(strings.TrimSpace(value)))
	switch o {
	case OutcomePending, OutcomeApproved, OutcomeFailed, OutcomeAbsent, OutcomeAbsentJustified:
		return o, nil
	default:
		return "", fmt.Errorf("unknown exam outcome %q", value)
	}
}

// CountsAttempt reports whether the outcome is charged against the attempt cap.
// Absences, justified or not, are never charged.
func (o Outcome) CountsAttempt() bool {
	switch o {
	case OutcomePending, OutcomeApproved, OutcomeFailed:
		return true
	default:
		return false
	}
}

// Subject is the curriculum unit snapshot used for evaluation.
type Subject struct {
	ID     uint
	PlanID uint
	Code   string
	Name   string
}

// Label renders the subject for reason messages.
func (s Subject) Label() string {
	switch {
	case s.Name != "" && s.Code != "":
		return fmt.Sprintf("%s (%s)", s.Name, s.Code)
	case s.Name != "":
		return s.Name
	case s.Code != "":
		return s.Code
	default:
		return fmt.Sprintf("subject #%d", s.ID)
	}
}

// Regularity is a closed course attempt of a student.
type Regularity struct {
	ID          uint
	SubjectID   uint
	ClosingDate time.Time
	Situation   Situation
}

// Attempt is an exam board registration of a student.
type Attempt struct {
	BoardID   uint
	SubjectID uint
	Date      time.Time
	Outcome   Outcome
}

// Board is the exam board a student asks to register for.
type Board struct {
	ID        uint
	SubjectID uint
	Date      time.Time
}

// DateOnly truncates a timestamp to its calendar day in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
