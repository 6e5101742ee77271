package dto

import (
	"time"

	"github.com/ipes/ipes-go-api/internal/eligibility"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Eligibility actions.
const (
	ActionEnrollment = "enrollment"
	ActionExam       = "exam_registration"
)

// ReasonResponse explains one denial.
type ReasonResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	SubjectID *uint  `json:"subject_id,omitempty"`
}

// ValidityResponse serialises the validity window of a regularity.
type ValidityResponse struct {
	RegularityID uint   `json:"regularity_id,omitempty"`
	SubjectID    uint   `json:"subject_id,omitempty"`
	ClosingDate  string `json:"closing_date"`
	TwoYearMark  string `json:"two_year_mark"`
	Deadline     string `json:"deadline"`
	Extended     bool   `json:"extended"`
	Expired      bool   `json:"expired"`
	AttemptsUsed int    `json:"attempts_used"`
	AttemptsLeft int    `json:"attempts_left"`
	MaxAttempts  int    `json:"max_attempts"`
}

// NewValidityResponse converts a computed window. on is the date expiry is judged against.
func NewValidityResponse(v eligibility.Validity, on time.Time) ValidityResponse {
	return ValidityResponse{
		ClosingDate:  v.ClosingDate.Format(DateLayout),
		TwoYearMark:  v.TwoYearMark.Format(DateLayout),
		Deadline:     v.Deadline.Format(DateLayout),
		Extended:     v.Extended,
		Expired:      v.Expired(on),
		AttemptsUsed: v.AttemptsUsed,
		AttemptsLeft: v.AttemptsLeft,
		MaxAttempts:  eligibility.MaxCountedAttempts,
	}
}

// EligibilityResponse is the verdict of an enrollment or exam registration check.
type EligibilityResponse struct {
	Action        string            `json:"action"`
	StudentID     uint              `json:"student_id"`
	SubjectID     uint              `json:"subject_id"`
	ExamBoardID   *uint             `json:"exam_board_id,omitempty"`
	AcademicYear  *int              `json:"academic_year,omitempty"`
	Allowed       bool              `json:"allowed"`
	Reasons       []ReasonResponse  `json:"reasons"`
	Validity      *ValidityResponse `json:"validity,omitempty"`
	VersionPolicy string            `json:"version_policy"`
	EvaluatedAt   time.Time         `json:"evaluated_at"`
}

// NewReasonResponses converts evaluator reasons, always returning a non-nil slice.
func NewReasonResponses(reasons []eligibility.Reason) []ReasonResponse {
	responses := make([]ReasonResponse, 0, len(reasons))
	for _, reason := range reasons {
		responses = append(responses, ReasonResponse{
			Code:      string(reason.Code),
			Message:   reason.Message,
			SubjectID: reason.SubjectID,
		})
	}
	return responses
}

// SubjectSummary names a subject together with the student's standing in it.
type SubjectSummary struct {
	ID        uint   `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Standing  string `json:"standing,omitempty"`
	Satisfied bool   `json:"satisfied"`
}

// CorrelativityResponse lists the effective prerequisites of a subject for one kind.
type CorrelativityResponse struct {
	SubjectID     uint             `json:"subject_id"`
	Kind          string           `json:"kind"`
	Cohort        *int             `json:"cohort,omitempty"`
	VersionID     *uint            `json:"version_id,omitempty"`
	VersionName   string           `json:"version_name,omitempty"`
	Unresolved    bool             `json:"unresolved"`
	Prerequisites []SubjectSummary `json:"prerequisites"`
}
