package dto

import (
	"time"

	"github.com/ipes/ipes-go-api/internal/models"
)

// EnrollmentRequest asks to enroll a student in a subject for an academic year.
type EnrollmentRequest struct {
	SubjectID    uint `json:"subject_id" validate:"required"`
	AcademicYear int  `json:"academic_year" validate:"required,gte=1990,lte=2100"`
}

// EnrollmentResponse serialises an enrollment.
type EnrollmentResponse struct {
	ID           uint      `json:"id"`
	StudentID    uint      `json:"student_id"`
	SubjectID    uint      `json:"subject_id"`
	AcademicYear int       `json:"academic_year"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewEnrollmentResponse converts an enrollment model.
func NewEnrollmentResponse(model models.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:           model.ID,
		StudentID:    model.StudentID,
		SubjectID:    model.SubjectID,
		AcademicYear: model.AcademicYear,
		Status:       model.Status,
		CreatedAt:    model.CreatedAt,
	}
}

// EnrollmentCommitResponse is the result of an enrollment attempt. Enrollment is nil when
// the request was denied.
type EnrollmentCommitResponse struct {
	Enrollment  *EnrollmentResponse `json:"enrollment,omitempty"`
	Created     bool                `json:"created"`
	Eligibility EligibilityResponse `json:"eligibility"`
}

// ExamRegistrationRequest asks to register a student for an exam board.
type ExamRegistrationRequest struct {
	ExamBoardID uint `json:"exam_board_id" validate:"required"`
}

// ExamOutcomeRequest records the result of a sat exam.
type ExamOutcomeRequest struct {
	Outcome string   `json:"outcome" validate:"required,exam_outcome"`
	Grade   *float64 `json:"grade" validate:"omitempty,gte=0,lte=10"`
}

// ExamRegistrationResponse serialises an exam registration.
type ExamRegistrationResponse struct {
	ID            uint      `json:"id"`
	StudentID     uint      `json:"student_id"`
	ExamBoardID   uint      `json:"exam_board_id"`
	SubjectID     uint      `json:"subject_id"`
	BoardDate     string    `json:"board_date"`
	Outcome       string    `json:"outcome"`
	Grade         *float64  `json:"grade,omitempty"`
	CountsAttempt bool      `json:"counts_attempt"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewExamRegistrationResponse converts a registration with its board preloaded.
func NewExamRegistrationResponse(model models.ExamRegistration) ExamRegistrationResponse {
	response := ExamRegistrationResponse{
		ID:            model.ID,
		StudentID:     model.StudentID,
		ExamBoardID:   model.ExamBoardID,
		SubjectID:     model.ExamBoard.SubjectID,
		Outcome:       string(model.Outcome),
		Grade:         model.Grade,
		CountsAttempt: model.CountsAttempt,
		CreatedAt:     model.CreatedAt,
	}
	if !model.ExamBoard.Date.IsZero() {
		response.BoardDate = model.ExamBoard.Date.Format(DateLayout)
	}
	return response
}

// ExamRegistrationCommitResponse is the result of an exam registration attempt.
type ExamRegistrationCommitResponse struct {
	Registration *ExamRegistrationResponse `json:"registration,omitempty"`
	Created      bool                      `json:"created"`
	Eligibility  EligibilityResponse       `json:"eligibility"`
}

// SubjectStandingResponse is the effective standing of one subject.
type SubjectStandingResponse struct {
	SubjectID   uint              `json:"subject_id"`
	Code        string            `json:"code"`
	Name        string            `json:"name"`
	Situation   string            `json:"situation"`
	Label       string            `json:"label"`
	Source      string            `json:"source"`
	ClosingDate string            `json:"closing_date,omitempty"`
	Validity    *ValidityResponse `json:"validity,omitempty"`
}

// StandingResponse is a student's academic standing across subjects.
type StandingResponse struct {
	StudentID   uint                      `json:"student_id"`
	GeneratedAt time.Time                 `json:"generated_at"`
	Subjects    []SubjectStandingResponse `json:"subjects"`
}

// RegularityImportRowError describes a rejected CSV row. Row numbers are 1-based and count
// the header.
type RegularityImportRowError struct {
	Row     int    `json:"row"`
	DNI     string `json:"dni,omitempty"`
	Message string `json:"message"`
}

// RegularityImportResponse summarises a CSV import.
type RegularityImportResponse struct {
	Processed int                        `json:"processed"`
	Imported  int                        `json:"imported"`
	Failed    int                        `json:"failed"`
	Errors    []RegularityImportRowError `json:"errors"`
}

// EquivalenceRequest grants a subject by equivalence.
type EquivalenceRequest struct {
	SubjectID uint   `json:"subject_id" validate:"required"`
	Origin    string `json:"origin" validate:"required,max=500"`
	GrantedAt string `json:"granted_at" validate:"omitempty,datetime=2006-01-02"`
}

// EquivalenceResponse serialises a granted equivalence.
type EquivalenceResponse struct {
	ID        uint   `json:"id"`
	StudentID uint   `json:"student_id"`
	SubjectID uint   `json:"subject_id"`
	Origin    string `json:"origin"`
	GrantedAt string `json:"granted_at"`
	GrantedBy uint   `json:"granted_by"`
}

// NewEquivalenceResponse converts an equivalence model.
func NewEquivalenceResponse(model models.Equivalence) EquivalenceResponse {
	return EquivalenceResponse{
		ID:        model.ID,
		StudentID: model.StudentID,
		SubjectID: model.SubjectID,
		Origin:    model.Origin,
		GrantedAt: model.GrantedAt.Format(DateLayout),
		GrantedBy: model.GrantedBy,
	}
}
