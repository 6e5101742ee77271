package eligibility

// ReasonCode identifies why an action was denied.
type ReasonCode string

// Denial reasons.
const (
	ReasonMissingRegular     ReasonCode = "MISSING_REGULAR_PREREQUISITE"
	ReasonMissingApproved    ReasonCode = "MISSING_APPROVED_PREREQUISITE"
	ReasonScheduleConflict   ReasonCode = "SCHEDULE_CONFLICT"
	ReasonAlreadyApproved    ReasonCode = "ALREADY_APPROVED"
	ReasonNotRegular         ReasonCode = "NOT_REGULAR"
	ReasonRegularityExpired  ReasonCode = "REGULARITY_EXPIRED"
	ReasonAttemptCapReached  ReasonCode = "ATTEMPT_CAP_REACHED"
	ReasonNoVersionForCohort ReasonCode = "NO_VERSION_FOR_COHORT"
)

// Reason is one human-readable explanation of a denial.
type Reason struct {
	Code    ReasonCode
	Message string
	// SubjectID points at the prerequisite or conflicting subject, when there is one.
	SubjectID *uint
}

// Result is the outcome of an evaluation. A denial is a normal value, not an error.
type Result struct {
	Allowed bool
	Reasons []Reason
	// Validity is filled by exam evaluations that reached a regular standing.
	Validity *Validity
}

// Has reports whether the result carries a reason with the given code.
func (r Result) Has(code ReasonCode) bool {
	for _, reason := range r.Reasons {
		if reason.Code == code {
			return true
		}
	}
	return false
}

// Codes lists the reason codes in order.
func (r Result) Codes() []ReasonCode {
	codes := make([]ReasonCode, 0, len(r.Reasons))
	for _, reason := range r.Reasons {
		codes = append(codes, reason.Code)
	}
	return codes
}

func (r *Result) deny(code ReasonCode, message string, subjectID *uint) {
	r.Allowed = false
	r.Reasons = append(r.Reasons, Reason{Code: code, Message: message, SubjectID: subjectID})
}

func allowed() Result {
	return Result{Allowed: true, Reasons: []Reason{}}
}

func uintPtr(v uint) *uint {
	return &v
}
