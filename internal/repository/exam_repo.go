package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ipes/ipes-go-api/internal/models"
)

// ExamRepository provides access to exam boards and registrations.
type ExamRepository interface {
	GetBoard(ctx context.Context, id uint) (models.ExamBoard, error)
	ListBoardDates(ctx context.Context, subjectID uint) ([]time.Time, error)
	ListRegistrationsByStudent(ctx context.Context, studentID uint) ([]models.ExamRegistration, error)
	GetRegistration(ctx context.Context, id uint) (models.ExamRegistration, error)
	GetOrCreateRegistration(ctx context.Context, registration *models.ExamRegistration) (bool, error)
	SaveRegistration(ctx context.Context, registration *models.ExamRegistration) error
}

type examRepository struct {
	db *gorm.DB
}

// NewExamRepository constructs the exam repository.
func NewExamRepository(db *gorm.DB) ExamRepository {
	return &examRepository{db: db}
}

func (r *examRepository) GetBoard(ctx context.Context, id uint) (models.ExamBoard, error) {
	var board models.ExamBoard
	if err := r.db.WithContext(ctx).Preload("Subject").First(&board, id).Error; err != nil {
		return models.ExamBoard{}, err
	}
	return board, nil
}

func (r *examRepository) ListBoardDates(ctx context.Context, subjectID uint) ([]time.Time, error) {
	var boards []models.ExamBoard
	err := r.db.WithContext(ctx).
		Select("id", "date").
		Where("subject_id = ?", subjectID).
		Order("date ASC").
		Find(&boards).Error
	if err != nil {
		return nil, err
	}

	dates := make([]time.Time, 0, len(boards))
	for _, board := range boards {
		dates = append(dates, board.Date)
	}
	return dates, nil
}

func (r *examRepository) ListRegistrationsByStudent(ctx context.Context, studentID uint) ([]models.ExamRegistration, error) {
	var registrations []models.ExamRegistration
	err := r.db.WithContext(ctx).
		Preload("ExamBoard").
		Where("student_id = ?", studentID).
		Order("id ASC").
		Find(&registrations).Error
	if err != nil {
		return nil, err
	}
	return registrations, nil
}

func (r *examRepository) GetRegistration(ctx context.Context, id uint) (models.ExamRegistration, error) {
	var registration models.ExamRegistration
	if err := r.db.WithContext(ctx).Preload("ExamBoard").First(&registration, id).Error; err != nil {
		return models.ExamRegistration{}, err
	}
	return registration, nil
}

// GetOrCreateRegistration inserts the registration unless the student already holds one for
// the board, in which case the existing row is loaded into registration. It reports whether
// a row was inserted.
func (r *examRepository) GetOrCreateRegistration(ctx context.Context, registration *models.ExamRegistration) (bool, error) {
	db := r.db.WithContext(ctx)

	result := db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "exam_board_id"}},
		DoNothing: true,
	}).Create(registration)
	if result.Error != nil {
		return false, result.Error
	}

	created := result.RowsAffected == 1
	err := db.Preload("ExamBoard").
		Where("student_id = ? AND exam_board_id = ?", registration.StudentID, registration.ExamBoardID).
		First(registration).Error
	if err != nil {
		return false, err
	}

	return created, nil
}

func (r *examRepository) SaveRegistration(ctx context.Context, registration *models.ExamRegistration) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(registration).Error
}
