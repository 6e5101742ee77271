package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog captures auditable write actions performed by staff and students.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"not null" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   *uint             `json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}

// EligibilityDecision is an append-only record of an evaluated eligibility check.
type EligibilityDecision struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Action        string         `gorm:"size:32;not null;index" json:"action"`
	StudentID     uint           `gorm:"not null;index" json:"student_id"`
	SubjectID     uint           `gorm:"not null" json:"subject_id"`
	ExamBoardID   *uint          `json:"exam_board_id,omitempty"`
	AcademicYear  *int           `json:"academic_year,omitempty"`
	Allowed       bool           `gorm:"not null;index" json:"allowed"`
	Reasons       datatypes.JSON `gorm:"type:json" json:"reasons"`
	VersionPolicy string         `gorm:"size:16" json:"version_policy"`
	CorrelationID string         `gorm:"size:64" json:"correlation_id"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
}
