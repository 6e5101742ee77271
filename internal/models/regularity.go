package models

import (
	"time"

	"github.com/ipes/ipes-go-api/internal/eligibility"
)

// Regularity records how a student closed a course attempt.
type Regularity struct {
	ID          uint                  `gorm:"primaryKey" json:"id"`
	StudentID   uint                  `gorm:"not null;index;uniqueIndex:idx_regularity_identity" json:"student_id"`
	SubjectID   uint                  `gorm:"not null;uniqueIndex:idx_regularity_identity" json:"subject_id"`
	ClosingDate time.Time             `gorm:"type:date;not null;uniqueIndex:idx_regularity_identity" json:"closing_date"`
	Situation   eligibility.Situation `gorm:"size:3;not null" json:"situation"`
	FinalGrade  *float64              `json:"final_grade,omitempty"`
	Notes       string                `gorm:"type:text" json:"notes"`
	Subject     Subject               `json:"subject,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// Snapshot converts the row into the evaluator's regularity.
func (r Regularity) Snapshot() eligibility.Regularity {
	return eligibility.Regularity{
		ID:          r.ID,
		SubjectID:   r.SubjectID,
		ClosingDate: r.ClosingDate,
		Situation:   r.Situation,
	}
}
