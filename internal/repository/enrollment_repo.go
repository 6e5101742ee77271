package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ipes/ipes-go-api/internal/models"
)

// EnrollmentRepository persists subject enrollments and reads class schedules.
type EnrollmentRepository interface {
	ListBlocks(ctx context.Context, subjectID uint, year int) ([]models.ScheduleBlock, error)
	ListActiveBlocks(ctx context.Context, studentID uint, year int) ([]models.ScheduleBlock, error)
	ListActiveSubjectIDs(ctx context.Context, studentID uint, year int) ([]uint, error)
	GetOrCreate(ctx context.Context, enrollment *models.Enrollment) (bool, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository constructs the enrollment repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) ListBlocks(ctx context.Context, subjectID uint, year int) ([]models.ScheduleBlock, error) {
	var blocks []models.ScheduleBlock
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND academic_year = ?", subjectID, year).
		Order("weekday ASC, start_minute ASC").
		Find(&blocks).Error
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// ListActiveBlocks returns the schedule of every subject the student is actively enrolled in
// for the academic year.
func (r *enrollmentRepository) ListActiveBlocks(ctx context.Context, studentID uint, year int) ([]models.ScheduleBlock, error) {
	var blocks []models.ScheduleBlock
	err := r.db.WithContext(ctx).
		Model(&models.ScheduleBlock{}).
		Select("schedule_blocks.*").
		Joins("JOIN enrollments ON enrollments.subject_id = schedule_blocks.subject_id AND enrollments.academic_year = schedule_blocks.academic_year").
		Where("enrollments.student_id = ? AND enrollments.academic_year = ? AND enrollments.status = ?", studentID, year, models.EnrollmentStatusActive).
		Order("schedule_blocks.weekday ASC, schedule_blocks.start_minute ASC").
		Find(&blocks).Error
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

func (r *enrollmentRepository) ListActiveSubjectIDs(ctx context.Context, studentID uint, year int) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("student_id = ? AND academic_year = ? AND status = ?", studentID, year, models.EnrollmentStatusActive).
		Order("subject_id ASC").
		Pluck("subject_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// GetOrCreate inserts the enrollment unless one exists for the same student, subject and
// year. A dropped enrollment is reactivated. It reports whether the enrollment became active
// through this call.
func (r *enrollmentRepository) GetOrCreate(ctx context.Context, enrollment *models.Enrollment) (bool, error) {
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}

	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "subject_id"}, {Name: "academic_year"}},
			DoNothing: true,
		}).Create(enrollment)
		if result.Error != nil {
			return result.Error
		}
		created = result.RowsAffected == 1

		if err := tx.Where("student_id = ? AND subject_id = ? AND academic_year = ?",
			enrollment.StudentID, enrollment.SubjectID, enrollment.AcademicYear).
			First(enrollment).Error; err != nil {
			return err
		}

		if enrollment.Status == models.EnrollmentStatusDropped {
			enrollment.Status = models.EnrollmentStatusActive
			created = true
			return tx.Model(enrollment).Update("status", models.EnrollmentStatusActive).Error
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	return created, nil
}
