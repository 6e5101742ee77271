package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ipes/ipes-go-api/internal/config"
	"github.com/ipes/ipes-go-api/internal/dto"
	"github.com/ipes/ipes-go-api/internal/eligibility"
	"github.com/ipes/ipes-go-api/internal/handler"
	"github.com/ipes/ipes-go-api/internal/middleware"
	"github.com/ipes/ipes-go-api/internal/service"
	"github.com/ipes/ipes-go-api/internal/utils"
)

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestEnrollmentHandlerStatuses(t *testing.T) {
	enrollment := &dto.EnrollmentResponse{ID: 5, StudentID: 3, SubjectID: 12, AcademicYear: 2025, Status: "active"}
	cases := []struct {
		name    string
		result  dto.EnrollmentCommitResponse
		status  int
		message string
	}{
		{"created", dto.EnrollmentCommitResponse{Enrollment: enrollment, Created: true, Eligibility: dto.EligibilityResponse{Allowed: true}}, fiber.StatusCreated, "enrollment created"},
		{"existing", dto.EnrollmentCommitResponse{Enrollment: enrollment, Eligibility: dto.EligibilityResponse{Allowed: true}}, fiber.StatusOK, "enrollment already exists"},
		{"denied", dto.EnrollmentCommitResponse{Eligibility: deniedVerdict()}, fiber.StatusUnprocessableEntity, "enrollment denied"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubEnrollmentService{result: tc.result}
			app := fiber.New()
			handler.NewEnrollmentHandler(svc, utils.NewValidator(), zerolog.Nop()).
				Register(app.Group("/students/:studentId", withActor(studentActor(3))))

			resp, err := app.Test(jsonRequest(t, http.MethodPost, "/students/3/enrollments", dto.EnrollmentRequest{SubjectID: 12, AcademicYear: 2025}))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, uint(12), svc.last.SubjectID)

			var body envelope
			decodeResponse(t, resp, &body)
			require.True(t, body.Success)
			require.Equal(t, tc.message, body.Message)

			var result dto.EnrollmentCommitResponse
			require.NoError(t, json.Unmarshal(body.Data, &result))
			require.Equal(t, tc.result.Created, result.Created)
			require.Equal(t, tc.result.Enrollment == nil, result.Enrollment == nil)
		})
	}
}

func TestEnrollmentHandlerValidationDetails(t *testing.T) {
	validate := utils.NewValidator()
	svc := &stubEnrollmentService{err: validate.Struct(dto.EnrollmentRequest{})}
	app := fiber.New()
	handler.NewEnrollmentHandler(svc, validate, zerolog.Nop()).
		Register(app.Group("/students/:studentId", withActor(studentActor(3))))

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/students/3/enrollments", map[string]interface{}{}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.Contains(t, body.Details, "subject_id")
	require.Contains(t, body.Details, "academic_year")

	bad := httptest.NewRequest(http.MethodPost, "/students/3/enrollments", strings.NewReader("{"))
	bad.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(bad)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestExamRegistrationHandler(t *testing.T) {
	board := uint(9)
	svc := &stubExamService{
		result: dto.ExamRegistrationCommitResponse{
			Registration: &dto.ExamRegistrationResponse{ID: 1, StudentID: 3, ExamBoardID: board, Outcome: "REGISTERED"},
			Created:      true,
			Eligibility:  dto.EligibilityResponse{Action: dto.ActionExam, Allowed: true, ExamBoardID: &board, Reasons: []dto.ReasonResponse{}},
		},
		outcome: dto.ExamRegistrationResponse{ID: 1, Outcome: "ABSENT", CountsAttempt: false},
	}
	app := fiber.New()
	h := handler.NewExamRegistrationHandler(svc, utils.NewValidator(), zerolog.Nop())
	h.RegisterStudentRoutes(app.Group("/students/:studentId", withActor(studentActor(3))))
	h.RegisterStaffRoutes(app.Group("/exam-registrations", withActor(staffActor())))

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/students/3/exam-registrations", dto.ExamRegistrationRequest{ExamBoardID: board}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodPatch, "/exam-registrations/1/outcome", dto.ExamOutcomeRequest{Outcome: "ABSENT"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	var registration dto.ExamRegistrationResponse
	require.NoError(t, json.Unmarshal(body.Data, &registration))
	require.False(t, registration.CountsAttempt)

	resp, err = app.Test(jsonRequest(t, http.MethodPatch, "/exam-registrations/0/outcome", dto.ExamOutcomeRequest{Outcome: "ABSENT"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	svc.err = service.ErrExamRegistrationNotFound
	resp, err = app.Test(jsonRequest(t, http.MethodPatch, "/exam-registrations/77/outcome", dto.ExamOutcomeRequest{Outcome: "FAILED"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func multipartRequest(t *testing.T, target, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestRegularityImportHandler(t *testing.T) {
	csvContent := "dni,subject_code,closing_date,situation\n30111222,MAT1,2024-12-01,REG\n"
	svc := &stubImportService{result: dto.RegularityImportResponse{Processed: 1, Imported: 1, Errors: []dto.RegularityImportRowError{}}}
	app := fiber.New()
	handler.NewRegularityImportHandler(svc, utils.NewValidator(), zerolog.Nop()).
		Register(app.Group("/regularities", withActor(staffActor())))

	resp, err := app.Test(multipartRequest(t, "/regularities/import", "file", "regularities.csv", []byte(csvContent)))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, csvContent, svc.received)

	var body envelope
	decodeResponse(t, resp, &body)
	var result dto.RegularityImportResponse
	require.NoError(t, json.Unmarshal(body.Data, &result))
	require.Equal(t, 1, result.Imported)

	resp, err = app.Test(multipartRequest(t, "/regularities/import", "", "", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	decodeResponse(t, resp, &body)
	require.Equal(t, "file is required", body.Message)

	svc.err = service.ErrUnsupportedUpload
	resp, err = app.Test(multipartRequest(t, "/regularities/import", "file", "photo.png", []byte("\x89PNG\r\n\x1a\n")))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)

	svc.err = service.ErrUploadTooLarge
	resp, err = app.Test(multipartRequest(t, "/regularities/import", "file", "big.csv", []byte(csvContent)))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestEquivalenceHandler(t *testing.T) {
	svc := &stubEquivalenceService{result: dto.EquivalenceResponse{ID: 4, StudentID: 3, SubjectID: 12, Origin: "UNC Algebra I", GrantedAt: "2025-04-03", GrantedBy: 1}}
	app := fiber.New()
	group := app.Group("/students/:studentId", func(c *fiber.Ctx) error {
		if c.Get("X-As") == "student" {
			middleware.SetActor(c, studentActor(3))
		} else {
			middleware.SetActor(c, staffActor())
		}
		return c.Next()
	})
	handler.NewEquivalenceHandler(svc, utils.NewValidator(), zerolog.Nop()).Register(group, middleware.RequireStaff())

	payload := dto.EquivalenceRequest{SubjectID: 12, Origin: "UNC Algebra I"}
	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/students/3/equivalences", payload))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	req := jsonRequest(t, http.MethodPost, "/students/3/equivalences", payload)
	req.Header.Set("X-As", "student")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	svc.err = service.ErrAlreadyApproved
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/students/3/equivalences", payload))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	app := fiber.New()
	app.Get("/health", handler.HealthCheck(config.Config{AppName: "IPES API", AppEnv: "test", VersionPolicy: eligibility.PolicyStrict}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	var health handler.HealthResponse
	require.NoError(t, json.Unmarshal(body.Data, &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "strict", health.VersionPolicy)
}
