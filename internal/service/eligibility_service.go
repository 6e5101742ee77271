package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/ipes/ipes-go-api/internal/dto"
	"github.com/ipes/ipes-go-api/internal/eligibility"
	"github.com/ipes/ipes-go-api/internal/middleware"
	"github.com/ipes/ipes-go-api/internal/models"
	"github.com/ipes/ipes-go-api/internal/observability"
)

const (
	minAcademicYear = 1990
	maxAcademicYear = 2100
)

// EligibilityService answers whether a student may enroll in a subject or sit an exam.
type EligibilityService interface {
	EnrollmentEligibility(ctx context.Context, actor middleware.Actor, studentID, subjectID uint, year int) (dto.EligibilityResponse, error)
	ExamEligibility(ctx context.Context, actor middleware.Actor, studentID, boardID uint) (dto.EligibilityResponse, error)
	ResolveCorrelativities(ctx context.Context, actor middleware.Actor, studentID, subjectID uint, kind string) (dto.CorrelativityResponse, error)
	RegularityValidity(ctx context.Context, actor middleware.Actor, studentID, regularityID uint) (dto.ValidityResponse, error)
}

type eligibilityService struct {
	repos     Repositories
	evaluator eligibility.Evaluator
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewEligibilityService builds the eligibility use-cases on top of the pure evaluator.
func NewEligibilityService(repos Repositories, policy eligibility.VersionPolicy, logger zerolog.Logger) EligibilityService {
	return &eligibilityService{
		repos:     repos,
		evaluator: eligibility.NewEvaluator(policy),
		logger:    logger.With().Str("component", "eligibility_service").Logger(),
		tracer:    otel.Tracer("github.com/ipes/ipes-go-api/internal/service/eligibility"),
		now:       time.Now,
	}
}

func (s *eligibilityService) EnrollmentEligibility(ctx context.Context, actor middleware.Actor, studentID, subjectID uint, year int) (dto.EligibilityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "eligibility.enrollment", trace.WithAttributes(
		attribute.Int64("student.id", int64(studentID)),
		attribute.Int64("subject.id", int64(subjectID)),
		attribute.Int("academic_year", year),
	))
	defer span.End()
	start := time.Now()

	response, err := s.evaluateEnrollment(ctx, actor, studentID, subjectID, year)
	if err != nil {
		return dto.EligibilityResponse{}, s.fail(span, err)
	}

	s.record(ctx, span, response, time.Since(start))
	return response, nil
}

func (s *eligibilityService) evaluateEnrollment(ctx context.Context, actor middleware.Actor, studentID, subjectID uint, year int) (dto.EligibilityResponse, error) {
	if !actor.CanActFor(studentID) {
		return dto.EligibilityResponse{}, ErrForbidden
	}
	if year < minAcademicYear || year > maxAcademicYear {
		return dto.EligibilityResponse{}, invalid("year", "must be between %d and %d", minAcademicYear, maxAcademicYear)
	}

	student, err := s.repos.student(ctx, studentID)
	if err != nil {
		return dto.EligibilityResponse{}, err
	}
	subject, err := s.repos.subject(ctx, subjectID)
	if err != nil {
		return dto.EligibilityResponse{}, err
	}
	history, err := s.repos.history(ctx, studentID)
	if err != nil {
		return dto.EligibilityResponse{}, err
	}

	target, err := s.repos.Enrollments.ListBlocks(ctx, subjectID, year)
	if err != nil {
		return dto.EligibilityResponse{}, err
	}
	current, err := s.repos.Enrollments.ListActiveBlocks(ctx, studentID, year)
	if err != nil {
		return dto.EligibilityResponse{}, err
	}

	others := make([]uint, 0, len(current))
	for _, block := range current {
		others = append(others, block.SubjectID)
	}
	graph, err := s.repos.graph(ctx, subject.PlanID, others...)
	if err != nil {
		return dto.EligibilityResponse{}, err
	}

	result := s.evaluator.CanEnroll(eligibility.EnrollmentInput{
		Subject:       subject.Snapshot(),
		Cohort:        student.CohortFor(subject.PlanID),
		History:       history,
		Graph:         graph,
		TargetBlocks:  blockSnapshots(target),
		CurrentBlocks: blockSnapshots(current),
	})

	response := s.newResponse(dto.ActionEnrollment, studentID, subjectID, result)
	response.AcademicYear = &year
	return response, nil
}

func (s *eligibilityService) ExamEligibility(ctx context.Context, actor middleware.Actor, studentID, boardID uint) (dto.EligibilityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "eligibility.exam", trace.WithAttributes(
		attribute.Int64("student.id", int64(studentID)),
		attribute.Int64("exam_board.id", int64(boardID)),
	))
	defer span.End()
	start := time.Now()

	response, err := s.evaluateExam(ctx, actor, studentID, boardID)
	if err != nil {
		return dto.EligibilityResponse{}, s.fail(span, err)
	}

	s.record(ctx, span, response, time.Since(start))
	return response, nil
}

func (s *eligibilityService) evaluateExam(ctx context.Context, actor middleware.Actor, studentID, boardID uint) (dto.EligibilityResponse, error) {
	if !actor.CanActFor(studentID) {
		return dto.EligibilityResponse{}, ErrForbidden
	}

	student, err := s.repos.student(ctx, studentID)
	if err != nil {
		return dto.EligibilityResponse{}, err
	}
	board, err := s.repos.Exams.GetBoard(ctx, boardID)
	if err != nil {
		return dto.EligibilityResponse{}, notFound(err, ErrExamBoardNotFound)
	}
	subject := board.Subject
	if subject.ID == 0 {
		if subject, err = s.repos.subject(ctx, board.SubjectID); err != nil {
			return dto.EligibilityResponse{}, err
		}
	}

	history, err := s.repos.history(ctx, studentID)
	if err != nil {
		return dto.EligibilityResponse{}, err
	}
	graph, err := s.repos.graph(ctx, subject.PlanID)
	if err != nil {
		return dto.EligibilityResponse{}, err
	}
	calendar, err := s.repos.Exams.ListBoardDates(ctx, subject.ID)
	if err != nil {
		return dto.EligibilityResponse{}, err
	}

	result := s.evaluator.CanRegisterForExam(eligibility.ExamInput{
		Subject:  subject.Snapshot(),
		Cohort:   student.CohortFor(subject.PlanID),
		Board:    board.Snapshot(),
		History:  history,
		Graph:    graph,
		Calendar: calendar,
	})

	response := s.newResponse(dto.ActionExam, studentID, subject.ID, result)
	response.ExamBoardID = &board.ID
	if result.Validity != nil {
		validity := dto.NewValidityResponse(*result.Validity, board.Date)
		validity.SubjectID = subject.ID
		if latest, ok := history.Latest(subject.ID); ok {
			validity.RegularityID = latest.ID
		}
		response.Validity = &validity
	}
	return response, nil
}

func (s *eligibilityService) ResolveCorrelativities(ctx context.Context, actor middleware.Actor, studentID, subjectID uint, kind string) (dto.CorrelativityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "eligibility.correlativities", trace.WithAttributes(
		attribute.Int64("student.id", int64(studentID)),
		attribute.Int64("subject.id", int64(subjectID)),
		attribute.String("correlativity.kind", kind),
	))
	defer span.End()

	if !actor.CanActFor(studentID) {
		return dto.CorrelativityResponse{}, s.fail(span, ErrForbidden)
	}
	parsedKind, err := eligibility.ParseKind(kind)
	if err != nil {
		return dto.CorrelativityResponse{}, s.fail(span, invalid("kind", "must be one of REGULAR_TO_ENROLL, APPROVED_TO_ENROLL, APPROVED_TO_SIT"))
	}

	student, err := s.repos.student(ctx, studentID)
	if err != nil {
		return dto.CorrelativityResponse{}, s.fail(span, err)
	}
	subject, err := s.repos.subject(ctx, subjectID)
	if err != nil {
		return dto.CorrelativityResponse{}, s.fail(span, err)
	}
	graph, err := s.repos.graph(ctx, subject.PlanID)
	if err != nil {
		return dto.CorrelativityResponse{}, s.fail(span, err)
	}
	history, err := s.repos.history(ctx, studentID)
	if err != nil {
		return dto.CorrelativityResponse{}, s.fail(span, err)
	}

	cohort := student.CohortFor(subject.PlanID)
	resolution := s.evaluator.Resolve(graph, subject.Snapshot(), parsedKind, cohort)

	response := dto.CorrelativityResponse{
		SubjectID:     subject.ID,
		Kind:          string(parsedKind),
		Cohort:        cohort,
		Unresolved:    resolution.Unresolved,
		Prerequisites: make([]dto.SubjectSummary, 0, len(resolution.Prerequisites)),
	}
	if resolution.Version != nil {
		response.VersionID = &resolution.Version.ID
		response.VersionName = resolution.Version.Name
	}
	for _, prerequisite := range resolution.Prerequisites {
		summary := dto.SubjectSummary{ID: prerequisite.ID, Code: prerequisite.Code, Name: prerequisite.Name}
		if standing, ok := history.Standing(prerequisite.ID); ok {
			summary.Standing = string(standing)
			summary.Satisfied = parsedKind.Satisfied(standing)
		}
		response.Prerequisites = append(response.Prerequisites, summary)
	}
	return response, nil
}

func (s *eligibilityService) RegularityValidity(ctx context.Context, actor middleware.Actor, studentID, regularityID uint) (dto.ValidityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "eligibility.validity", trace.WithAttributes(
		attribute.Int64("student.id", int64(studentID)),
		attribute.Int64("regularity.id", int64(regularityID)),
	))
	defer span.End()

	if !actor.CanActFor(studentID) {
		return dto.ValidityResponse{}, s.fail(span, ErrForbidden)
	}

	regularity, err := s.repos.Regularities.GetByID(ctx, regularityID)
	if err != nil {
		return dto.ValidityResponse{}, s.fail(span, notFound(err, ErrRegularityNotFound))
	}
	if regularity.StudentID != studentID {
		return dto.ValidityResponse{}, s.fail(span, ErrRegularityNotFound)
	}

	history, err := s.repos.history(ctx, studentID)
	if err != nil {
		return dto.ValidityResponse{}, s.fail(span, err)
	}
	calendar, err := s.repos.Exams.ListBoardDates(ctx, regularity.SubjectID)
	if err != nil {
		return dto.ValidityResponse{}, s.fail(span, err)
	}

	validity := eligibility.ComputeValidity(regularity.Snapshot(), calendar, history.AttemptsFor(regularity.SubjectID, 0))
	response := dto.NewValidityResponse(validity, s.now())
	response.RegularityID = regularity.ID
	response.SubjectID = regularity.SubjectID
	return response, nil
}

func (s *eligibilityService) newResponse(action string, studentID, subjectID uint, result eligibility.Result) dto.EligibilityResponse {
	return dto.EligibilityResponse{
		Action:        action,
		StudentID:     studentID,
		SubjectID:     subjectID,
		Allowed:       result.Allowed,
		Reasons:       dto.NewReasonResponses(result.Reasons),
		VersionPolicy: string(s.evaluator.Policy()),
		EvaluatedAt:   s.now().UTC(),
	}
}

// record counts, traces and appends the decision to the decision log. Logging failures do
// not change the verdict.
func (s *eligibilityService) record(ctx context.Context, span trace.Span, response dto.EligibilityResponse, elapsed time.Duration) {
	span.SetAttributes(
		attribute.Bool("eligibility.allowed", response.Allowed),
		attribute.Int("eligibility.reasons", len(response.Reasons)),
	)

	observability.EligibilityLatency().WithLabelValues(response.Action).Observe(elapsed.Seconds())
	observability.EligibilityDecisions().WithLabelValues(response.Action, strconv.FormatBool(response.Allowed)).Inc()
	for _, reason := range response.Reasons {
		observability.EligibilityDenials().WithLabelValues(response.Action, reason.Code).Inc()
	}

	logger := middleware.LoggerWithCorrelation(ctx, s.logger)
	logger.Debug().
		Str("action", response.Action).
		Uint("student_id", response.StudentID).
		Uint("subject_id", response.SubjectID).
		Bool("allowed", response.Allowed).
		Msg("eligibility evaluated")

	if s.repos.Decisions == nil {
		return
	}

	reasons, err := json.Marshal(response.Reasons)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to encode decision reasons")
		return
	}

	decision := models.EligibilityDecision{
		Action:        response.Action,
		StudentID:     response.StudentID,
		SubjectID:     response.SubjectID,
		ExamBoardID:   response.ExamBoardID,
		AcademicYear:  response.AcademicYear,
		Allowed:       response.Allowed,
		Reasons:       datatypes.JSON(reasons),
		VersionPolicy: response.VersionPolicy,
		CorrelationID: middleware.CorrelationIDFromContext(ctx),
	}
	if err := s.repos.Decisions.Create(ctx, &decision); err != nil {
		logger.Warn().Err(err).Msg("failed to append eligibility decision")
	}
}

func (s *eligibilityService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		span.SetStatus(codes.Error, "validation failed")
	case errors.Is(err, ErrForbidden):
		span.SetStatus(codes.Error, "forbidden")
	default:
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
