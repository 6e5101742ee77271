package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ipes/ipes-go-api/internal/dto"
	"github.com/ipes/ipes-go-api/internal/eligibility"
	"github.com/ipes/ipes-go-api/internal/middleware"
	"github.com/ipes/ipes-go-api/internal/models"
	"github.com/ipes/ipes-go-api/internal/repository"
	"github.com/ipes/ipes-go-api/internal/utils"
)

// ExamRegistrationService commits exam board registrations and records their outcomes.
type ExamRegistrationService interface {
	Register(ctx context.Context, actor middleware.Actor, studentID uint, req dto.ExamRegistrationRequest) (dto.ExamRegistrationCommitResponse, error)
	RecordOutcome(ctx context.Context, actor middleware.Actor, registrationID uint, req dto.ExamOutcomeRequest) (dto.ExamRegistrationResponse, error)
}

type examRegistrationService struct {
	eligibility EligibilityService
	exams       repository.ExamRepository
	standing    StandingInvalidator
	activity    ActivityRecorder
	events      EventPublisher
	validator   *utils.Validator
	logger      zerolog.Logger
}

// NewExamRegistrationService constructs the exam registration service.
func NewExamRegistrationService(eligibility EligibilityService, exams repository.ExamRepository, standing StandingInvalidator, activity ActivityRecorder, events EventPublisher, validator *utils.Validator, logger zerolog.Logger) ExamRegistrationService {
	return &examRegistrationService{
		eligibility: eligibility,
		exams:       exams,
		standing:    standing,
		activity:    activity,
		events:      events,
		validator:   validator,
		logger:      logger.With().Str("component", "exam_registration_service").Logger(),
	}
}

// Register evaluates the request and, when allowed, registers the student to the board.
// Repeating an allowed request returns the existing registration with Created=false.
func (s *examRegistrationService) Register(ctx context.Context, actor middleware.Actor, studentID uint, req dto.ExamRegistrationRequest) (dto.ExamRegistrationCommitResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ExamRegistrationCommitResponse{}, err
	}

	verdict, err := s.eligibility.ExamEligibility(ctx, actor, studentID, req.ExamBoardID)
	if err != nil {
		return dto.ExamRegistrationCommitResponse{}, err
	}

	response := dto.ExamRegistrationCommitResponse{Eligibility: verdict}
	if !verdict.Allowed {
		return response, nil
	}

	registration := models.ExamRegistration{
		StudentID:   studentID,
		ExamBoardID: req.ExamBoardID,
		Outcome:     eligibility.OutcomePending,
	}
	if verdict.Validity != nil && verdict.Validity.RegularityID != 0 {
		registration.RegularityID = uintRef(verdict.Validity.RegularityID)
	}

	created, err := s.exams.GetOrCreateRegistration(ctx, &registration)
	if err != nil {
		return dto.ExamRegistrationCommitResponse{}, err
	}

	payload := dto.NewExamRegistrationResponse(registration)
	response.Registration = &payload
	response.Created = created

	if created {
		s.invalidate(ctx, studentID)
		recordQuietly(ctx, s.activity, s.logger, ActivityEntry{
			Actor:      actor,
			Action:     "exam_registration.create",
			EntityType: "exam_registration",
			EntityID:   uintRef(registration.ID),
			Metadata: map[string]interface{}{
				"student_id":    studentID,
				"exam_board_id": req.ExamBoardID,
			},
		})
		publishQuietly(ctx, s.events, s.logger, EventExamRegistrationCreated, payload)
	}

	return response, nil
}

// RecordOutcome sets the result of a registration. Only staff may record outcomes; the
// attempt-counting flag follows the outcome.
func (s *examRegistrationService) RecordOutcome(ctx context.Context, actor middleware.Actor, registrationID uint, req dto.ExamOutcomeRequest) (dto.ExamRegistrationResponse, error) {
	if !actor.IsStaff() {
		return dto.ExamRegistrationResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.ExamRegistrationResponse{}, err
	}

	outcome, err := eligibility.ParseOutcome(req.Outcome)
	if err != nil {
		return dto.ExamRegistrationResponse{}, invalid("outcome", "%s", err.Error())
	}
	if outcome == eligibility.OutcomeApproved && req.Grade != nil && *req.Grade < 4 {
		return dto.ExamRegistrationResponse{}, invalid("grade", "an approved exam needs a grade of at least 4")
	}
	if (outcome == eligibility.OutcomeAbsent || outcome == eligibility.OutcomeAbsentJustified) && req.Grade != nil {
		return dto.ExamRegistrationResponse{}, invalid("grade", "absences carry no grade")
	}

	registration, err := s.exams.GetRegistration(ctx, registrationID)
	if err != nil {
		return dto.ExamRegistrationResponse{}, notFound(err, ErrExamRegistrationNotFound)
	}

	previous := registration.Outcome
	registration.Outcome = outcome
	registration.Grade = req.Grade
	if err := s.exams.SaveRegistration(ctx, &registration); err != nil {
		return dto.ExamRegistrationResponse{}, err
	}

	s.invalidate(ctx, registration.StudentID)

	payload := dto.NewExamRegistrationResponse(registration)
	recordQuietly(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "exam_registration.outcome",
		EntityType: "exam_registration",
		EntityID:   uintRef(registration.ID),
		Metadata: map[string]interface{}{
			"student_id":       registration.StudentID,
			"previous_outcome": string(previous),
			"outcome":          string(outcome),
			"counts_attempt":   registration.CountsAttempt,
		},
	})
	publishQuietly(ctx, s.events, s.logger, EventExamOutcomeRecorded, payload)

	return payload, nil
}

func (s *examRegistrationService) invalidate(ctx context.Context, studentID uint) {
	if s.standing == nil {
		return
	}
	if err := s.standing.Invalidate(ctx, studentID); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate standing cache")
	}
}
