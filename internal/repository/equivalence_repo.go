package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ipes/ipes-go-api/internal/models"
)

// EquivalenceRepository persists granted equivalences.
type EquivalenceRepository interface {
	Create(ctx context.Context, equivalence *models.Equivalence) error
	ListSubjectIDs(ctx context.Context, studentID uint) ([]uint, error)
}

type equivalenceRepository struct {
	db *gorm.DB
}

// NewEquivalenceRepository constructs the equivalence repository.
func NewEquivalenceRepository(db *gorm.DB) EquivalenceRepository {
	return &equivalenceRepository{db: db}
}

func (r *equivalenceRepository) Create(ctx context.Context, equivalence *models.Equivalence) error {
	return r.db.WithContext(ctx).Create(equivalence).Error
}

func (r *equivalenceRepository) ListSubjectIDs(ctx context.Context, studentID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Equivalence{}).
		Where("student_id = ?", studentID).
		Order("subject_id ASC").
		Pluck("subject_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
