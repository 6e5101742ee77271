package eligibility

import (
	"fmt"
	"time"
)

// EnrollmentInput is the snapshot needed to decide a subject enrollment.
type EnrollmentInput struct {
	Subject Subject
	// Cohort is the student's entry year in the subject's plan; nil when unknown.
	Cohort  *int
	History History
	Graph   Graph
	// TargetBlocks are the weekly slots of the subject being requested.
	TargetBlocks []Block
	// CurrentBlocks are the slots of the student's other active enrollments that year.
	CurrentBlocks []Block
}

// ExamInput is the snapshot needed to decide a final exam registration.
type ExamInput struct {
	Subject Subject
	Cohort  *int
	Board   Board
	History History
	Graph   Graph
	// Calendar holds the scheduled exam board dates of the subject.
	Calendar []time.Time
}

// Evaluator runs the eligibility rules.
type Evaluator struct {
	policy VersionPolicy
}

// NewEvaluator builds an evaluator using the given version policy.
func NewEvaluator(policy VersionPolicy) Evaluator {
	if policy == "" {
		policy = PolicyFallback
	}
	return Evaluator{policy: policy}
}

// Policy returns the configured version policy.
func (e Evaluator) Policy() VersionPolicy {
	return e.policy
}

// Resolve returns the effective prerequisites of a subject for a kind.
func (e Evaluator) Resolve(g Graph, subject Subject, kind Kind, cohort *int) Resolution {
	return ResolveCorrelativities(g, subject, kind, cohort, e.policy)
}

// CanEnroll decides whether a student may enroll in a subject. Every unmet prerequisite and
// every schedule conflict is reported.
func (e Evaluator) CanEnroll(in EnrollmentInput) Result {
	result := allowed()

	if standing, ok := in.History.Standing(in.Subject.ID); ok && standing.IsApproved() {
		result.deny(ReasonAlreadyApproved,
			fmt.Sprintf("%s is already %s", in.Subject.Label(), standing.Label()), nil)
	}

	for _, kind := range []Kind{KindRegularToEnroll, KindApprovedToEnroll} {
		e.checkPrerequisites(&result, in.Graph, in.Subject, kind, in.Cohort, in.History)
	}

	reported := map[uint]struct{}{}
	for _, target := range in.TargetBlocks {
		for _, current := range in.CurrentBlocks {
			if current.SubjectID == in.Subject.ID || !target.Conflicts(current) {
				continue
			}
			if _, dup := reported[current.SubjectID]; dup {
				continue
			}
			reported[current.SubjectID] = struct{}{}
			other := in.Graph.Subject(current.SubjectID)
			result.deny(ReasonScheduleConflict,
				fmt.Sprintf("%s overlaps with %s on %s", target.String(), other.Label(), current.String()),
				uintPtr(current.SubjectID))
		}
	}

	return result
}

// CanRegisterForExam decides whether a student may sit the final exam of a board.
//
// Only a regular standing permits registration. A subject already approved is rejected as
// unnecessary and nothing else is checked. Otherwise validity, attempt cap and
// approved-to-sit correlativities are all evaluated and every failure is reported.
func (e Evaluator) CanRegisterForExam(in ExamInput) Result {
	result := allowed()

	standing, hasStanding := in.History.Standing(in.Subject.ID)
	if hasStanding && standing.IsApproved() {
		result.deny(ReasonAlreadyApproved,
			fmt.Sprintf("%s is already %s; no exam is needed", in.Subject.Label(), standing.Label()), nil)
		return result
	}

	if !hasStanding || standing != SituationRegular {
		current := "no regularity on record"
		if hasStanding {
			current = "current situation: " + standing.Label()
		}
		result.deny(ReasonNotRegular,
			fmt.Sprintf("%s requires a regular standing to sit the final exam (%s)", in.Subject.Label(), current), nil)
	} else {
		reg, _ := in.History.Latest(in.Subject.ID)
		validity := ComputeValidity(reg, in.Calendar, in.History.AttemptsFor(in.Subject.ID, in.Board.ID))
		result.Validity = &validity

		if validity.Expired(in.Board.Date) {
			result.deny(ReasonRegularityExpired,
				fmt.Sprintf("regularity closed on %s was valid until %s; the board is on %s",
					formatDate(validity.ClosingDate), formatDate(validity.Deadline), formatDate(in.Board.Date)), nil)
		}
		if validity.CapReached() {
			result.deny(ReasonAttemptCapReached,
				fmt.Sprintf("attempt cap reached: %d of %d counted attempts used since %s",
					validity.AttemptsUsed, MaxCountedAttempts, formatDate(validity.ClosingDate)), nil)
		}
	}

	e.checkPrerequisites(&result, in.Graph, in.Subject, KindApprovedToSit, in.Cohort, in.History)

	return result
}

func (e Evaluator) checkPrerequisites(result *Result, g Graph, subject Subject, kind Kind, cohort *int, history History) {
	resolution := e.Resolve(g, subject, kind, cohort)
	if resolution.Unresolved {
		if !result.Has(ReasonNoVersionForCohort) {
			result.deny(ReasonNoVersionForCohort,
				fmt.Sprintf("no correlativity version of the plan covers cohort %s", cohortLabel(cohort)), nil)
		}
		return
	}

	for _, prerequisite := range resolution.Prerequisites {
		standing, ok := history.Standing(prerequisite.ID)
		if ok && kind.Satisfied(standing) {
			continue
		}

		current := "no record"
		if ok {
			current = standing.Label()
		}

		code := ReasonMissingApproved
		requirement := "approved"
		if kind == KindRegularToEnroll {
			code = ReasonMissingRegular
			requirement = "regular or approved"
		}

		action := "enroll in"
		if kind == KindApprovedToSit {
			action = "sit the final exam of"
		}

		result.deny(code,
			fmt.Sprintf("%s must be %s to %s %s (current: %s)",
				prerequisite.Label(), requirement, action, subject.Label(), current),
			uintPtr(prerequisite.ID))
	}
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func cohortLabel(cohort *int) string {
	if cohort == nil {
		return "unknown"
	}
	return fmt.Sprintf("%d", *cohort)
}
