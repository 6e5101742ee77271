package models

import (
	"time"

	"github.com/ipes/ipes-go-api/internal/eligibility"
)

// Enrollment statuses.
const (
	EnrollmentStatusActive  = "ACTIVE"
	EnrollmentStatusDropped = "DROPPED"
)

// Enrollment is a student's registration to take a subject in an academic year.
type Enrollment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	StudentID    uint      `gorm:"not null;index;uniqueIndex:idx_enrollment_identity" json:"student_id"`
	SubjectID    uint      `gorm:"not null;uniqueIndex:idx_enrollment_identity" json:"subject_id"`
	AcademicYear int       `gorm:"not null;uniqueIndex:idx_enrollment_identity" json:"academic_year"`
	Status       string    `gorm:"size:16;not null;default:ACTIVE" json:"status"`
	Subject      Subject   `json:"subject,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ScheduleBlock is a weekly class slot of a subject in an academic year.
type ScheduleBlock struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	SubjectID    uint              `gorm:"not null;index:idx_schedule_subject_year" json:"subject_id"`
	AcademicYear int               `gorm:"not null;index:idx_schedule_subject_year" json:"academic_year"`
	Term         eligibility.Term  `gorm:"size:8;not null" json:"term"`
	Shift        eligibility.Shift `gorm:"size:16;not null" json:"shift"`
	Weekday      int               `gorm:"not null" json:"weekday"`
	StartMinute  int               `gorm:"not null" json:"start_minute"`
	EndMinute    int               `gorm:"not null" json:"end_minute"`
}

// Snapshot converts the row into the evaluator's block.
func (b ScheduleBlock) Snapshot() eligibility.Block {
	return eligibility.Block{
		SubjectID:   b.SubjectID,
		Term:        b.Term,
		Shift:       b.Shift,
		Weekday:     b.Weekday,
		StartMinute: b.StartMinute,
		EndMinute:   b.EndMinute,
	}
}

// Equivalence records a subject credited to a student from studies elsewhere.
type Equivalence struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StudentID uint      `gorm:"not null;index;uniqueIndex:idx_equivalence_identity" json:"student_id"`
	SubjectID uint      `gorm:"not null;uniqueIndex:idx_equivalence_identity" json:"subject_id"`
	Origin    string    `gorm:"type:text;not null" json:"origin"`
	GrantedAt time.Time `gorm:"type:date;not null" json:"granted_at"`
	GrantedBy uint      `json:"granted_by"`
	CreatedAt time.Time `json:"created_at"`
}
