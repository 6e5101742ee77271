package service

import (
	"context"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/ipes/ipes-go-api/internal/dto"
	"github.com/ipes/ipes-go-api/internal/eligibility"
	"github.com/ipes/ipes-go-api/internal/middleware"
	"github.com/ipes/ipes-go-api/internal/models"
	"github.com/ipes/ipes-go-api/internal/utils"
)

// EquivalenceService grants subjects approved through studies at another institution.
type EquivalenceService interface {
	Grant(ctx context.Context, actor middleware.Actor, studentID uint, req dto.EquivalenceRequest) (dto.EquivalenceResponse, error)
}

type equivalenceService struct {
	repos     Repositories
	standing  StandingInvalidator
	activity  ActivityRecorder
	events    EventPublisher
	validator *utils.Validator
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewEquivalenceService constructs the equivalence service.
func NewEquivalenceService(repos Repositories, standing StandingInvalidator, activity ActivityRecorder, events EventPublisher, validator *utils.Validator, logger zerolog.Logger) EquivalenceService {
	return &equivalenceService{
		repos:     repos,
		standing:  standing,
		activity:  activity,
		events:    events,
		validator: validator,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "equivalence_service").Logger(),
		now:       time.Now,
	}
}

func (s *equivalenceService) Grant(ctx context.Context, actor middleware.Actor, studentID uint, req dto.EquivalenceRequest) (dto.EquivalenceResponse, error) {
	if !actor.IsStaff() {
		return dto.EquivalenceResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.EquivalenceResponse{}, err
	}

	origin := strings.TrimSpace(s.sanitizer.Sanitize(req.Origin))
	if origin == "" {
		return dto.EquivalenceResponse{}, invalid("origin", "is empty after sanitization")
	}

	grantedAt := eligibility.DateOnly(s.now())
	if req.GrantedAt != "" {
		parsed, err := time.Parse(dto.DateLayout, req.GrantedAt)
		if err != nil {
			return dto.EquivalenceResponse{}, invalid("granted_at", "must use YYYY-MM-DD")
		}
		grantedAt = parsed
	}

	if _, err := s.repos.student(ctx, studentID); err != nil {
		return dto.EquivalenceResponse{}, err
	}
	if _, err := s.repos.subject(ctx, req.SubjectID); err != nil {
		return dto.EquivalenceResponse{}, err
	}

	history, err := s.repos.history(ctx, studentID)
	if err != nil {
		return dto.EquivalenceResponse{}, err
	}
	if standing, ok := history.Standing(req.SubjectID); ok && standing.IsApproved() {
		return dto.EquivalenceResponse{}, ErrAlreadyApproved
	}

	equivalence := models.Equivalence{
		StudentID: studentID,
		SubjectID: req.SubjectID,
		Origin:    origin,
		GrantedAt: grantedAt,
		GrantedBy: actor.UserID,
	}
	if err := s.repos.Equivalences.Create(ctx, &equivalence); err != nil {
		return dto.EquivalenceResponse{}, err
	}

	if s.standing != nil {
		if err := s.standing.Invalidate(ctx, studentID); err != nil {
			s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate standing cache")
		}
	}

	response := dto.NewEquivalenceResponse(equivalence)
	recordQuietly(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "equivalence.grant",
		EntityType: "equivalence",
		EntityID:   uintRef(equivalence.ID),
		Metadata: map[string]interface{}{
			"student_id": studentID,
			"subject_id": req.SubjectID,
		},
	})
	publishQuietly(ctx, s.events, s.logger, EventEquivalenceGranted, response)

	return response, nil
}
