package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/ipes/ipes-go-api/internal/eligibility"
)

// Exam board kinds.
const (
	ExamBoardOrdinary      = "ORDINARY"
	ExamBoardExtraordinary = "EXTRAORDINARY"
)

// ExamBoard is a scheduled final exam session of a subject.
type ExamBoard struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SubjectID uint      `gorm:"not null;index" json:"subject_id"`
	Date      time.Time `gorm:"type:date;not null;index" json:"date"`
	Kind      string    `gorm:"size:16;not null;default:ORDINARY" json:"kind"`
	Session   string    `gorm:"size:64" json:"session"`
	Subject   Subject   `json:"subject,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot converts the row into the evaluator's board.
func (b ExamBoard) Snapshot() eligibility.Board {
	return eligibility.Board{ID: b.ID, SubjectID: b.SubjectID, Date: b.Date}
}

// ExamRegistration is a student's registration to sit an exam board.
type ExamRegistration struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	StudentID     uint                `gorm:"not null;index;uniqueIndex:idx_exam_registration_identity" json:"student_id"`
	ExamBoardID   uint                `gorm:"not null;uniqueIndex:idx_exam_registration_identity" json:"exam_board_id"`
	RegularityID  *uint               `json:"regularity_id,omitempty"`
	Outcome       eligibility.Outcome `gorm:"size:24;not null;default:PENDING" json:"outcome"`
	Grade         *float64            `json:"grade,omitempty"`
	CountsAttempt bool                `gorm:"not null" json:"counts_attempt"`
	ExamBoard     ExamBoard           `json:"exam_board,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// BeforeSave keeps the attempt-counting flag consistent with the outcome.
func (r *ExamRegistration) BeforeSave(_ *gorm.DB) error {
	if r.Outcome == "" {
		r.Outcome = eligibility.OutcomePending
	}
	r.CountsAttempt = r.Outcome.CountsAttempt()
	return nil
}

// Snapshot converts the row into the evaluator's attempt. The exam board must be preloaded.
func (r ExamRegistration) Snapshot() eligibility.Attempt {
	return eligibility.Attempt{
		BoardID:   r.ExamBoardID,
		SubjectID: r.ExamBoard.SubjectID,
		Date:      r.ExamBoard.Date,
		Outcome:   r.Outcome,
	}
}
