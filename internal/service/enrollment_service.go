package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ipes/ipes-go-api/internal/dto"
	"github.com/ipes/ipes-go-api/internal/middleware"
	"github.com/ipes/ipes-go-api/internal/models"
	"github.com/ipes/ipes-go-api/internal/repository"
	"github.com/ipes/ipes-go-api/internal/utils"
)

// EnrollmentService commits subject enrollments that pass the eligibility rules.
type EnrollmentService interface {
	Enroll(ctx context.Context, actor middleware.Actor, studentID uint, req dto.EnrollmentRequest) (dto.EnrollmentCommitResponse, error)
}

// StandingInvalidator drops cached standings after a write.
type StandingInvalidator interface {
	Invalidate(ctx context.Context, studentID uint) error
}

type enrollmentService struct {
	eligibility EligibilityService
	enrollments repository.EnrollmentRepository
	standing    StandingInvalidator
	activity    ActivityRecorder
	events      EventPublisher
	validator   *utils.Validator
	logger      zerolog.Logger
}

// NewEnrollmentService constructs the enrollment commit service.
func NewEnrollmentService(eligibility EligibilityService, enrollments repository.EnrollmentRepository, standing StandingInvalidator, activity ActivityRecorder, events EventPublisher, validator *utils.Validator, logger zerolog.Logger) EnrollmentService {
	return &enrollmentService{
		eligibility: eligibility,
		enrollments: enrollments,
		standing:    standing,
		activity:    activity,
		events:      events,
		validator:   validator,
		logger:      logger.With().Str("component", "enrollment_service").Logger(),
	}
}

// Enroll evaluates the request and, when allowed, creates the enrollment. Repeating an
// allowed request returns the existing enrollment with Created=false. A denied request
// writes nothing.
func (s *enrollmentService) Enroll(ctx context.Context, actor middleware.Actor, studentID uint, req dto.EnrollmentRequest) (dto.EnrollmentCommitResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EnrollmentCommitResponse{}, err
	}

	verdict, err := s.eligibility.EnrollmentEligibility(ctx, actor, studentID, req.SubjectID, req.AcademicYear)
	if err != nil {
		return dto.EnrollmentCommitResponse{}, err
	}

	response := dto.EnrollmentCommitResponse{Eligibility: verdict}
	if !verdict.Allowed {
		return response, nil
	}

	enrollment := models.Enrollment{
		StudentID:    studentID,
		SubjectID:    req.SubjectID,
		AcademicYear: req.AcademicYear,
		Status:       models.EnrollmentStatusActive,
	}
	created, err := s.enrollments.GetOrCreate(ctx, &enrollment)
	if err != nil {
		return dto.EnrollmentCommitResponse{}, err
	}

	payload := dto.NewEnrollmentResponse(enrollment)
	response.Enrollment = &payload
	response.Created = created

	if created {
		if s.standing != nil {
			if err := s.standing.Invalidate(ctx, studentID); err != nil {
				s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate standing cache")
			}
		}
		recordQuietly(ctx, s.activity, s.logger, ActivityEntry{
			Actor:      actor,
			Action:     "enrollment.create",
			EntityType: "enrollment",
			EntityID:   uintRef(enrollment.ID),
			Metadata: map[string]interface{}{
				"student_id":    studentID,
				"subject_id":    req.SubjectID,
				"academic_year": req.AcademicYear,
			},
		})
		publishQuietly(ctx, s.events, s.logger, EventEnrollmentCreated, payload)
	}

	return response, nil
}
