package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ipes/ipes-go-api/internal/models"
)

// RegularityRepository persists course closing records.
type RegularityRepository interface {
	GetByID(ctx context.Context, id uint) (models.Regularity, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.Regularity, error)
	Upsert(ctx context.Context, regularity *models.Regularity) error
}

type regularityRepository struct {
	db *gorm.DB
}

// NewRegularityRepository constructs the regularity repository.
func NewRegularityRepository(db *gorm.DB) RegularityRepository {
	return &regularityRepository{db: db}
}

func (r *regularityRepository) GetByID(ctx context.Context, id uint) (models.Regularity, error) {
	var regularity models.Regularity
	if err := r.db.WithContext(ctx).Preload("Subject").First(&regularity, id).Error; err != nil {
		return models.Regularity{}, err
	}
	return regularity, nil
}

func (r *regularityRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Regularity, error) {
	var regularities []models.Regularity
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("closing_date DESC").
		Order("id DESC").
		Find(&regularities).Error
	if err != nil {
		return nil, err
	}
	return regularities, nil
}

// Upsert inserts a closing record or overwrites the one with the same student, subject and
// closing date.
func (r *regularityRepository) Upsert(ctx context.Context, regularity *models.Regularity) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "subject_id"}, {Name: "closing_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"situation", "final_grade", "notes", "updated_at"}),
	}).Create(regularity).Error
}
