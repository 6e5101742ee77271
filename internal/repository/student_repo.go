package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/ipes/ipes-go-api/internal/models"
)

// StudentRepository provides access to student records.
type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
	GetByDNI(ctx context.Context, dni string) (models.Student, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Preload("Plans").First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) GetByDNI(ctx context.Context, dni string) (models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).
		Preload("Plans").
		Where("dni = ?", strings.TrimSpace(dni)).
		First(&student).Error
	if err != nil {
		return models.Student{}, err
	}

	return student, nil
}
