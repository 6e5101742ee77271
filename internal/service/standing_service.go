package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ipes/ipes-go-api/internal/dto"
	"github.com/ipes/ipes-go-api/internal/eligibility"
	"github.com/ipes/ipes-go-api/internal/middleware"
	"github.com/ipes/ipes-go-api/internal/models"
	"github.com/ipes/ipes-go-api/internal/observability"
)

// Standing sources.
const (
	StandingSourceRegularity  = "regularity"
	StandingSourceExam        = "final_exam"
	StandingSourceEquivalence = "equivalence"
)

// StandingService reports a student's effective standing per subject.
type StandingService interface {
	StandingInvalidator
	Get(ctx context.Context, actor middleware.Actor, studentID uint) (dto.StandingResponse, error)
}

type standingService struct {
	repos    Repositories
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewStandingService builds the standing query. A nil redis client disables caching.
func NewStandingService(repos Repositories, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StandingService {
	return &standingService{
		repos:    repos,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "standing_service").Logger(),
		now:      time.Now,
	}
}

func standingCacheKey(studentID uint) string {
	return fmt.Sprintf("standing:student:%d", studentID)
}

func (s *standingService) Get(ctx context.Context, actor middleware.Actor, studentID uint) (dto.StandingResponse, error) {
	if !actor.CanActFor(studentID) {
		return dto.StandingResponse{}, ErrForbidden
	}

	cacheKey := standingCacheKey(studentID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StandingResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				observability.StandingCacheLookups().WithLabelValues("hit").Inc()
				s.logger.Debug().Uint("student_id", studentID).Msg("standing cache hit")
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read standing cache")
		}
		observability.StandingCacheLookups().WithLabelValues("miss").Inc()
	}

	if _, err := s.repos.student(ctx, studentID); err != nil {
		return dto.StandingResponse{}, err
	}

	response, err := s.build(ctx, studentID)
	if err != nil {
		return dto.StandingResponse{}, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store standing cache")
			}
		}
	}

	return response, nil
}

func (s *standingService) Invalidate(ctx context.Context, studentID uint) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, standingCacheKey(studentID)).Err()
}

func (s *standingService) build(ctx context.Context, studentID uint) (dto.StandingResponse, error) {
	now := s.now()
	history, err := s.repos.history(ctx, studentID)
	if err != nil {
		return dto.StandingResponse{}, err
	}

	ids := history.SubjectIDs()
	subjects, err := s.repos.Curriculum.ListSubjects(ctx, ids)
	if err != nil {
		return dto.StandingResponse{}, err
	}
	byID := make(map[uint]models.Subject, len(subjects))
	for _, subject := range subjects {
		byID[subject.ID] = subject
	}

	response := dto.StandingResponse{
		StudentID:   studentID,
		GeneratedAt: now.UTC(),
		Subjects:    make([]dto.SubjectStandingResponse, 0, len(ids)),
	}

	for _, id := range ids {
		standing, ok := history.Standing(id)
		if !ok {
			continue
		}

		subject := byID[id]
		entry := dto.SubjectStandingResponse{
			SubjectID: id,
			Code:      subject.Code,
			Name:      subject.Name,
			Situation: string(standing),
			Label:     standing.Label(),
			Source:    standingSource(history, id),
		}

		latest, hasRegularity := history.Latest(id)
		if hasRegularity {
			entry.ClosingDate = latest.ClosingDate.Format(dto.DateLayout)
		}

		if standing == eligibility.SituationRegular && hasRegularity {
			calendar, err := s.repos.Exams.ListBoardDates(ctx, id)
			if err != nil {
				return dto.StandingResponse{}, err
			}
			validity := eligibility.ComputeValidity(latest, calendar, history.AttemptsFor(id, 0))
			payload := dto.NewValidityResponse(validity, now)
			payload.RegularityID = latest.ID
			payload.SubjectID = id
			entry.Validity = &payload
		}

		response.Subjects = append(response.Subjects, entry)
	}

	sort.Slice(response.Subjects, func(i, j int) bool {
		if response.Subjects[i].Code != response.Subjects[j].Code {
			return response.Subjects[i].Code < response.Subjects[j].Code
		}
		return response.Subjects[i].SubjectID < response.Subjects[j].SubjectID
	})

	return response, nil
}

func standingSource(history eligibility.History, subjectID uint) string {
	for _, id := range history.Equivalences {
		if id == subjectID {
			return StandingSourceEquivalence
		}
	}
	for _, attempt := range history.Attempts {
		if attempt.SubjectID == subjectID && attempt.Outcome == eligibility.OutcomeApproved {
			return StandingSourceExam
		}
	}
	return StandingSourceRegularity
}
