package models

import (
	"time"

	"github.com/ipes/ipes-go-api/internal/eligibility"
)

// Plan is a curriculum plan, one per degree program.
type Plan struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"size:32;uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subject is a curriculum unit of a plan.
type Subject struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	PlanID      uint             `gorm:"not null;index;uniqueIndex:idx_subject_plan_code" json:"plan_id"`
	Code        string           `gorm:"size:32;not null;uniqueIndex:idx_subject_plan_code" json:"code"`
	Name        string           `gorm:"size:255;not null" json:"name"`
	YearOfStudy int              `gorm:"not null;default:1" json:"year_of_study"`
	Cadence     eligibility.Term `gorm:"size:8;not null;default:ANUAL" json:"cadence"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Snapshot converts the row into the evaluator's subject.
func (s Subject) Snapshot() eligibility.Subject {
	return eligibility.Subject{ID: s.ID, PlanID: s.PlanID, Code: s.Code, Name: s.Name}
}

// CorrelativityVersion scopes a set of correlativity edges to a cohort range of a plan.
type CorrelativityVersion struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PlanID     uint      `gorm:"not null;index" json:"plan_id"`
	Name       string    `gorm:"size:128;not null" json:"name"`
	CohortFrom int       `gorm:"not null" json:"cohort_from"`
	CohortTo   *int      `json:"cohort_to,omitempty"`
	Active     bool      `gorm:"not null" json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// Snapshot converts the row into the evaluator's version.
func (v CorrelativityVersion) Snapshot() eligibility.Version {
	return eligibility.Version{
		ID:         v.ID,
		PlanID:     v.PlanID,
		Name:       v.Name,
		CohortFrom: v.CohortFrom,
		CohortTo:   v.CohortTo,
		Active:     v.Active,
	}
}

// Correlativity is a prerequisite edge between two subjects.
type Correlativity struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	SubjectID      uint             `gorm:"not null;index" json:"subject_id"`
	PrerequisiteID uint             `gorm:"not null" json:"prerequisite_id"`
	Kind           eligibility.Kind `gorm:"size:32;not null" json:"kind"`
	VersionID      *uint            `gorm:"index" json:"version_id,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Snapshot converts the row into the evaluator's edge.
func (c Correlativity) Snapshot() eligibility.Edge {
	return eligibility.Edge{
		ID:             c.ID,
		SubjectID:      c.SubjectID,
		PrerequisiteID: c.PrerequisiteID,
		Kind:           c.Kind,
		VersionID:      c.VersionID,
	}
}
