package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ipes/ipes-go-api/internal/database"
	"github.com/ipes/ipes-go-api/internal/dto"
	"github.com/ipes/ipes-go-api/internal/eligibility"
	"github.com/ipes/ipes-go-api/internal/middleware"
	"github.com/ipes/ipes-go-api/internal/models"
	"github.com/ipes/ipes-go-api/internal/repository"
	"github.com/ipes/ipes-go-api/internal/utils"
)

type academicFixture struct {
	db        *gorm.DB
	mini      *miniredis.Miniredis
	redis     *redis.Client
	repos     Repositories
	validator *utils.Validator

	plan     models.Plan
	other    models.Plan
	intro    models.Subject
	advanced models.Subject
	foreign  models.Subject
	student  models.Student
	peer     models.Student

	activity    ActivityService
	events      EventPublisher
	standing    StandingService
	eligibility EligibilityService
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func newAcademicFixture(t *testing.T) *academicFixture {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	f := &academicFixture{
		db:        db,
		mini:      mini,
		redis:     redis.NewClient(&redis.Options{Addr: mini.Addr()}),
		validator: utils.NewValidator(),
		repos: Repositories{
			Students:     repository.NewStudentRepository(db),
			Curriculum:   repository.NewCurriculumRepository(db),
			Regularities: repository.NewRegularityRepository(db),
			Exams:        repository.NewExamRepository(db),
			Enrollments:  repository.NewEnrollmentRepository(db),
			Equivalences: repository.NewEquivalenceRepository(db),
			Decisions:    repository.NewDecisionRepository(db),
		},
		plan:  models.Plan{Code: "PROF-MAT", Name: "Profesorado de Matematica"},
		other: models.Plan{Code: "PROF-FIS", Name: "Profesorado de Fisica"},
	}
	t.Cleanup(func() { _ = f.redis.Close() })

	require.NoError(t, db.Create(&f.plan).Error)
	require.NoError(t, db.Create(&f.other).Error)

	f.intro = models.Subject{PlanID: f.plan.ID, Code: "MAT1", Name: "Algebra I", Cadence: eligibility.TermAnnual}
	f.advanced = models.Subject{PlanID: f.plan.ID, Code: "MAT2", Name: "Algebra II", YearOfStudy: 2, Cadence: eligibility.TermAnnual}
	f.foreign = models.Subject{PlanID: f.other.ID, Code: "FIS1", Name: "Fisica I", Cadence: eligibility.TermFirstHalf}
	require.NoError(t, db.Create(&f.intro).Error)
	require.NoError(t, db.Create(&f.advanced).Error)
	require.NoError(t, db.Create(&f.foreign).Error)

	edges := []models.Correlativity{
		{SubjectID: f.advanced.ID, PrerequisiteID: f.intro.ID, Kind: eligibility.KindRegularToEnroll},
		{SubjectID: f.advanced.ID, PrerequisiteID: f.intro.ID, Kind: eligibility.KindApprovedToSit},
	}
	require.NoError(t, db.Create(&edges).Error)

	userID := uint(70)
	f.student = models.Student{DNI: "30111222", Name: "Ana Perez", UserID: &userID, Plans: []models.StudentPlan{{PlanID: f.plan.ID, CohortYear: 2023}}}
	f.peer = models.Student{DNI: "30999888", Name: "Luis Gomez", Plans: []models.StudentPlan{{PlanID: f.plan.ID, CohortYear: 2023}}}
	require.NoError(t, db.Create(&f.student).Error)
	require.NoError(t, db.Create(&f.peer).Error)

	f.activity = NewActivityService(repository.NewActivityLogRepository(db), testLogger())
	f.events = NewEventPublisher(f.redis, nil, "ipes", testLogger())
	f.standing = NewStandingService(f.repos, f.redis, time.Minute, testLogger())
	f.eligibility = NewEligibilityService(f.repos, eligibility.PolicyFallback, testLogger())

	return f
}

func (f *academicFixture) studentActor() middleware.Actor {
	id := f.student.ID
	return middleware.Actor{UserID: *f.student.UserID, StudentID: &id, Roles: middleware.NewRoleSet(middleware.RoleStudent)}
}

func (f *academicFixture) staffActor() middleware.Actor {
	return middleware.Actor{UserID: 1, Roles: middleware.NewRoleSet(middleware.RoleBedel)}
}

func (f *academicFixture) enrollmentService() EnrollmentService {
	return NewEnrollmentService(f.eligibility, f.repos.Enrollments, f.standing, f.activity, f.events, f.validator, testLogger())
}

func (f *academicFixture) examService() ExamRegistrationService {
	return NewExamRegistrationService(f.eligibility, f.repos.Exams, f.standing, f.activity, f.events, f.validator, testLogger())
}

func (f *academicFixture) regularity(t *testing.T, subjectID uint, closing time.Time, situation eligibility.Situation) models.Regularity {
	t.Helper()
	reg := models.Regularity{StudentID: f.student.ID, SubjectID: subjectID, ClosingDate: closing, Situation: situation}
	require.NoError(t, f.repos.Regularities.Upsert(context.Background(), &reg))
	return reg
}

func (f *academicFixture) board(t *testing.T, subjectID uint, date time.Time) models.ExamBoard {
	t.Helper()
	board := models.ExamBoard{SubjectID: subjectID, Date: date, Kind: models.ExamBoardOrdinary}
	require.NoError(t, f.db.Create(&board).Error)
	return board
}

func reasonCodes(reasons []dto.ReasonResponse) []string {
	codes := make([]string, 0, len(reasons))
	for _, reason := range reasons {
		codes = append(codes, reason.Code)
	}
	return codes
}

func floatPointer(v float64) *float64 {
	return &v
}
