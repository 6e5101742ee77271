package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ipes/ipes-go-api/internal/database"
	"github.com/ipes/ipes-go-api/internal/eligibility"
	"github.com/ipes/ipes-go-api/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

type curriculumFixture struct {
	plan     models.Plan
	other    models.Plan
	intro    models.Subject
	advanced models.Subject
	external models.Subject
	student  models.Student
}

func seedCurriculum(t *testing.T, db *gorm.DB) curriculumFixture {
	t.Helper()
	f := curriculumFixture{
		plan:  models.Plan{Code: "PROF-MAT", Name: "Profesorado de Matematica"},
		other: models.Plan{Code: "PROF-FIS", Name: "Profesorado de Fisica"},
	}
	require.NoError(t, db.Create(&f.plan).Error)
	require.NoError(t, db.Create(&f.other).Error)

	f.intro = models.Subject{PlanID: f.plan.ID, Code: "MAT1", Name: "Algebra I", Cadence: eligibility.TermAnnual}
	f.advanced = models.Subject{PlanID: f.plan.ID, Code: "MAT2", Name: "Algebra II", YearOfStudy: 2, Cadence: eligibility.TermAnnual}
	f.external = models.Subject{PlanID: f.other.ID, Code: "FIS1", Name: "Fisica I", Cadence: eligibility.TermFirstHalf}
	require.NoError(t, db.Create(&f.intro).Error)
	require.NoError(t, db.Create(&f.advanced).Error)
	require.NoError(t, db.Create(&f.external).Error)

	f.student = models.Student{DNI: "30111222", Name: "Ana Perez", Plans: []models.StudentPlan{{PlanID: f.plan.ID, CohortYear: 2023}}}
	require.NoError(t, db.Create(&f.student).Error)
	return f
}

func TestStudentRepositoryPreloadsPlans(t *testing.T) {
	db := newTestDB(t)
	f := seedCurriculum(t, db)
	repo := NewStudentRepository(db)

	student, err := repo.GetByDNI(context.Background(), " 30111222 ")
	require.NoError(t, err)
	require.Equal(t, f.student.ID, student.ID)
	require.Len(t, student.Plans, 1)
	require.Equal(t, 2023, *student.CohortFor(f.plan.ID))
	require.Nil(t, student.CohortFor(f.other.ID))

	_, err = repo.GetByID(context.Background(), 999)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCurriculumRepositoryLoadGraph(t *testing.T) {
	db := newTestDB(t)
	f := seedCurriculum(t, db)
	repo := NewCurriculumRepository(db)

	to := 2022
	legacy := models.CorrelativityVersion{PlanID: f.plan.ID, Name: "2015", CohortFrom: 2015, CohortTo: &to, Active: true}
	retired := models.CorrelativityVersion{PlanID: f.plan.ID, Name: "draft", CohortFrom: 2020, Active: false}
	require.NoError(t, db.Create(&legacy).Error)
	require.NoError(t, db.Create(&retired).Error)

	edges := []models.Correlativity{
		{SubjectID: f.advanced.ID, PrerequisiteID: f.intro.ID, Kind: eligibility.KindRegularToEnroll},
		{SubjectID: f.advanced.ID, PrerequisiteID: f.external.ID, Kind: eligibility.KindApprovedToSit, VersionID: &legacy.ID},
		{SubjectID: f.external.ID, PrerequisiteID: f.intro.ID, Kind: eligibility.KindApprovedToEnroll},
	}
	require.NoError(t, db.Create(&edges).Error)

	graph, err := repo.LoadGraph(context.Background(), f.plan.ID)
	require.NoError(t, err)
	require.Len(t, graph.Edges, 2, "edges of other plans' subjects are not part of the graph")
	require.Len(t, graph.Versions, 2)
	require.False(t, graph.Versions[1].Active)
	require.Equal(t, "Fisica I", graph.Subject(f.external.ID).Name, "external prerequisites are named")

	subject, err := repo.FindSubjectByCode(context.Background(), []uint{f.plan.ID}, "mat2")
	require.NoError(t, err)
	require.Equal(t, f.advanced.ID, subject.ID)

	_, err = repo.FindSubjectByCode(context.Background(), []uint{f.plan.ID}, "FIS1")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRegularityRepositoryUpsertOverwritesSameClosing(t *testing.T) {
	db := newTestDB(t)
	f := seedCurriculum(t, db)
	repo := NewRegularityRepository(db)
	ctx := context.Background()

	first := models.Regularity{StudentID: f.student.ID, SubjectID: f.intro.ID, ClosingDate: day(2023, time.March, 1), Situation: eligibility.SituationFailedPracticals}
	require.NoError(t, repo.Upsert(ctx, &first))

	grade := 7.5
	again := models.Regularity{StudentID: f.student.ID, SubjectID: f.intro.ID, ClosingDate: day(2023, time.March, 1), Situation: eligibility.SituationRegular, FinalGrade: &grade}
	require.NoError(t, repo.Upsert(ctx, &again))

	later := models.Regularity{StudentID: f.student.ID, SubjectID: f.intro.ID, ClosingDate: day(2024, time.March, 1), Situation: eligibility.SituationPromoted}
	require.NoError(t, repo.Upsert(ctx, &later))

	regularities, err := repo.ListByStudent(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, regularities, 2)
	require.Equal(t, eligibility.SituationPromoted, regularities[0].Situation, "latest closing first")
	require.Equal(t, eligibility.SituationRegular, regularities[1].Situation)
	require.NotNil(t, regularities[1].FinalGrade)
	require.InDelta(t, 7.5, *regularities[1].FinalGrade, 0.001)
}

func TestExamRepositoryGetOrCreateRegistrationIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	f := seedCurriculum(t, db)
	repo := NewExamRepository(db)
	ctx := context.Background()

	board := models.ExamBoard{SubjectID: f.intro.ID, Date: day(2024, time.July, 10), Kind: models.ExamBoardOrdinary}
	later := models.ExamBoard{SubjectID: f.intro.ID, Date: day(2024, time.December, 5), Kind: models.ExamBoardOrdinary}
	require.NoError(t, db.Create(&board).Error)
	require.NoError(t, db.Create(&later).Error)

	registration := models.ExamRegistration{StudentID: f.student.ID, ExamBoardID: board.ID}
	created, err := repo.GetOrCreateRegistration(ctx, &registration)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, eligibility.OutcomePending, registration.Outcome)
	require.True(t, registration.CountsAttempt)

	duplicate := models.ExamRegistration{StudentID: f.student.ID, ExamBoardID: board.ID}
	created, err = repo.GetOrCreateRegistration(ctx, &duplicate)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, registration.ID, duplicate.ID)
	require.Equal(t, f.intro.ID, duplicate.ExamBoard.SubjectID)

	var count int64
	require.NoError(t, db.Model(&models.ExamRegistration{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	duplicate.Outcome = eligibility.OutcomeAbsentJustified
	require.NoError(t, repo.SaveRegistration(ctx, &duplicate))

	stored, err := repo.GetRegistration(ctx, registration.ID)
	require.NoError(t, err)
	require.Equal(t, eligibility.OutcomeAbsentJustified, stored.Outcome)
	require.False(t, stored.CountsAttempt)

	dates, err := repo.ListBoardDates(ctx, f.intro.ID)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	require.True(t, dates[0].Equal(board.Date))
}

func TestEnrollmentRepositoryGetOrCreate(t *testing.T) {
	db := newTestDB(t)
	f := seedCurriculum(t, db)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()

	enrollment := models.Enrollment{StudentID: f.student.ID, SubjectID: f.intro.ID, AcademicYear: 2024}
	created, err := repo.GetOrCreate(ctx, &enrollment)
	require.NoError(t, err)
	require.True(t, created)

	again := models.Enrollment{StudentID: f.student.ID, SubjectID: f.intro.ID, AcademicYear: 2024}
	created, err = repo.GetOrCreate(ctx, &again)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, enrollment.ID, again.ID)

	require.NoError(t, db.Model(&models.Enrollment{}).Where("id = ?", enrollment.ID).Update("status", models.EnrollmentStatusDropped).Error)
	reactivated := models.Enrollment{StudentID: f.student.ID, SubjectID: f.intro.ID, AcademicYear: 2024}
	created, err = repo.GetOrCreate(ctx, &reactivated)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, models.EnrollmentStatusActive, reactivated.Status)

	var count int64
	require.NoError(t, db.Model(&models.Enrollment{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestEnrollmentRepositoryListActiveBlocks(t *testing.T) {
	db := newTestDB(t)
	f := seedCurriculum(t, db)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()

	blocks := []models.ScheduleBlock{
		{SubjectID: f.intro.ID, AcademicYear: 2024, Term: eligibility.TermAnnual, Shift: eligibility.ShiftEvening, Weekday: 1, StartMinute: 18 * 60, EndMinute: 19*60 + 20},
		{SubjectID: f.intro.ID, AcademicYear: 2023, Term: eligibility.TermAnnual, Shift: eligibility.ShiftEvening, Weekday: 2, StartMinute: 18 * 60, EndMinute: 19*60 + 20},
		{SubjectID: f.advanced.ID, AcademicYear: 2024, Term: eligibility.TermAnnual, Shift: eligibility.ShiftEvening, Weekday: 3, StartMinute: 18 * 60, EndMinute: 19*60 + 20},
	}
	require.NoError(t, db.Create(&blocks).Error)

	enrollments := []models.Enrollment{
		{StudentID: f.student.ID, SubjectID: f.intro.ID, AcademicYear: 2024, Status: models.EnrollmentStatusActive},
		{StudentID: f.student.ID, SubjectID: f.advanced.ID, AcademicYear: 2024, Status: models.EnrollmentStatusDropped},
	}
	require.NoError(t, db.Create(&enrollments).Error)

	active, err := repo.ListActiveBlocks(ctx, f.student.ID, 2024)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, blocks[0].ID, active[0].ID)
	require.Equal(t, 1, active[0].Weekday)

	ids, err := repo.ListActiveSubjectIDs(ctx, f.student.ID, 2024)
	require.NoError(t, err)
	require.Equal(t, []uint{f.intro.ID}, ids)

	own, err := repo.ListBlocks(ctx, f.advanced.ID, 2024)
	require.NoError(t, err)
	require.Len(t, own, 1)
}

func TestActivityLogRepositoryListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewActivityLogRepository(db)
	ctx := context.Background()

	entityID := uint(7)
	entries := []models.ActivityLog{
		{ActorID: 1, ActorRole: "bedel", Action: "exam_registration.outcome", EntityType: "exam_registration", EntityID: &entityID, Metadata: datatypes.JSONMap{"outcome": "FAILED"}},
		{ActorID: 1, ActorRole: "bedel", Action: "regularity.import", EntityType: "regularity"},
		{ActorID: 2, ActorRole: "student", Action: "enrollment.create", EntityType: "enrollment"},
	}
	for i := range entries {
		require.NoError(t, repo.Create(ctx, &entries[i]))
	}

	actor := uint(1)
	list, total, err := repo.List(ctx, ActivityLogFilter{ActorID: &actor})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, list, 2)

	list, total, err = repo.List(ctx, ActivityLogFilter{EntityType: "exam_registration", EntityID: &entityID})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "FAILED", list[0].Metadata["outcome"])
}

func TestDecisionRepositoryListByStudent(t *testing.T) {
	db := newTestDB(t)
	repo := NewDecisionRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &models.EligibilityDecision{Action: "enrollment", StudentID: 4, SubjectID: uint(i + 1), Allowed: i%2 == 0, Reasons: datatypes.JSON("[]")}))
	}
	require.NoError(t, repo.Create(ctx, &models.EligibilityDecision{Action: "exam", StudentID: 5, SubjectID: 1, Allowed: true}))

	decisions, err := repo.ListByStudent(ctx, 4, 2)
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	for _, decision := range decisions {
		require.Equal(t, uint(4), decision.StudentID)
	}
}
