package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ipes/ipes-go-api/internal/models"
)

// DecisionRepository appends evaluated eligibility decisions.
type DecisionRepository interface {
	Create(ctx context.Context, decision *models.EligibilityDecision) error
	ListByStudent(ctx context.Context, studentID uint, limit int) ([]models.EligibilityDecision, error)
}

type decisionRepository struct {
	db *gorm.DB
}

// NewDecisionRepository constructs the decision log repository.
func NewDecisionRepository(db *gorm.DB) DecisionRepository {
	return &decisionRepository{db: db}
}

func (r *decisionRepository) Create(ctx context.Context, decision *models.EligibilityDecision) error {
	return r.db.WithContext(ctx).Create(decision).Error
}

func (r *decisionRepository) ListByStudent(ctx context.Context, studentID uint, limit int) ([]models.EligibilityDecision, error) {
	query := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var decisions []models.EligibilityDecision
	if err := query.Find(&decisions).Error; err != nil {
		return nil, err
	}
	return decisions, nil
}
