package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ipes/ipes-go-api/internal/models"
)

// ConnectPostgres establishes a connection to the PostgreSQL database using the provided DSN.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the tables backing the academic records.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Plan{},
		&models.Subject{},
		&models.CorrelativityVersion{},
		&models.Correlativity{},
		&models.Student{},
		&models.StudentPlan{},
		&models.Regularity{},
		&models.ExamBoard{},
		&models.ExamRegistration{},
		&models.Enrollment{},
		&models.ScheduleBlock{},
		&models.Equivalence{},
		&models.ActivityLog{},
		&models.EligibilityDecision{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
