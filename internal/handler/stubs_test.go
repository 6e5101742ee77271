package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/ipes/ipes-go-api/internal/dto"
	"github.com/ipes/ipes-go-api/internal/middleware"
)

var errUnexpected = errors.New("connection reset by peer")

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Details map[string]string `json:"details"`
	Meta    json.RawMessage   `json:"meta"`
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(body, target))
}

func withActor(actor middleware.Actor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		middleware.SetActor(c, actor)
		return c.Next()
	}
}

func studentActor(id uint) middleware.Actor {
	return middleware.Actor{UserID: 100 + id, StudentID: &id, Roles: middleware.NewRoleSet(middleware.RoleStudent)}
}

func staffActor() middleware.Actor {
	return middleware.Actor{UserID: 1, Roles: middleware.NewRoleSet(middleware.RoleBedel)}
}

type stubEligibilityService struct {
	verdict     dto.EligibilityResponse
	correlation dto.CorrelativityResponse
	validity    dto.ValidityResponse
	err         error

	lastYear int
	lastKind string
}

func (s *stubEligibilityService) EnrollmentEligibility(_ context.Context, _ middleware.Actor, _, _ uint, year int) (dto.EligibilityResponse, error) {
	s.lastYear = year
	return s.verdict, s.err
}

func (s *stubEligibilityService) ExamEligibility(context.Context, middleware.Actor, uint, uint) (dto.EligibilityResponse, error) {
	return s.verdict, s.err
}

func (s *stubEligibilityService) ResolveCorrelativities(_ context.Context, _ middleware.Actor, _, _ uint, kind string) (dto.CorrelativityResponse, error) {
	s.lastKind = kind
	return s.correlation, s.err
}

func (s *stubEligibilityService) RegularityValidity(context.Context, middleware.Actor, uint, uint) (dto.ValidityResponse, error) {
	return s.validity, s.err
}

type stubEnrollmentService struct {
	result dto.EnrollmentCommitResponse
	err    error
	last   dto.EnrollmentRequest
}

func (s *stubEnrollmentService) Enroll(_ context.Context, _ middleware.Actor, _ uint, req dto.EnrollmentRequest) (dto.EnrollmentCommitResponse, error) {
	s.last = req
	return s.result, s.err
}

type stubExamService struct {
	result  dto.ExamRegistrationCommitResponse
	outcome dto.ExamRegistrationResponse
	err     error
}

func (s *stubExamService) Register(context.Context, middleware.Actor, uint, dto.ExamRegistrationRequest) (dto.ExamRegistrationCommitResponse, error) {
	return s.result, s.err
}

func (s *stubExamService) RecordOutcome(context.Context, middleware.Actor, uint, dto.ExamOutcomeRequest) (dto.ExamRegistrationResponse, error) {
	return s.outcome, s.err
}

type stubImportService struct {
	result   dto.RegularityImportResponse
	err      error
	received string
}

func (s *stubImportService) Import(_ context.Context, _ middleware.Actor, content io.Reader) (dto.RegularityImportResponse, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return dto.RegularityImportResponse{}, err
	}
	s.received = string(data)
	return s.result, s.err
}

type stubEquivalenceService struct {
	result dto.EquivalenceResponse
	err    error
}

func (s *stubEquivalenceService) Grant(context.Context, middleware.Actor, uint, dto.EquivalenceRequest) (dto.EquivalenceResponse, error) {
	return s.result, s.err
}
