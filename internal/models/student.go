package models

import "time"

// Student represents a person enrolled in one or more curriculum plans.
type Student struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	DNI       string        `gorm:"size:16;uniqueIndex;not null" json:"dni"`
	Name      string        `gorm:"size:255;not null" json:"name"`
	Email     string        `gorm:"size:255" json:"email"`
	UserID    *uint         `gorm:"uniqueIndex" json:"user_id,omitempty"`
	Plans     []StudentPlan `json:"plans,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// StudentPlan records the cohort year a student entered a plan with.
type StudentPlan struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StudentID  uint      `gorm:"not null;uniqueIndex:idx_student_plan" json:"student_id"`
	PlanID     uint      `gorm:"not null;uniqueIndex:idx_student_plan" json:"plan_id"`
	CohortYear int       `gorm:"not null" json:"cohort_year"`
	CreatedAt  time.Time `json:"created_at"`
}

// CohortFor returns the cohort year of the student in a plan, if enrolled in it.
func (s Student) CohortFor(planID uint) *int {
	for _, plan := range s.Plans {
		if plan.PlanID == planID {
			cohort := plan.CohortYear
			return &cohort
		}
	}
	return nil
}
