package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/ipes/ipes-go-api/internal/dto"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)

	schema, err := jsonschema.NewCompiler().Compile("file://" + filepath.ToSlash(schemaPath))
	require.NoError(t, err)
	return schema
}

func TestEligibilityContract(t *testing.T) {
	schema := compileSchema(t, "eligibility.schema.json")

	board := uint(9)
	allowed := dto.EligibilityResponse{
		Action:      dto.ActionExam,
		StudentID:   3,
		SubjectID:   12,
		ExamBoardID: &board,
		Allowed:     true,
		Reasons:     []dto.ReasonResponse{},
		Validity: &dto.ValidityResponse{
			ClosingDate:  "2023-03-01",
			TwoYearMark:  "2025-03-01",
			Deadline:     "2025-03-10",
			Extended:     true,
			AttemptsUsed: 1,
			AttemptsLeft: 2,
			MaxAttempts:  3,
		},
		VersionPolicy: "fallback",
		EvaluatedAt:   deniedVerdict().EvaluatedAt,
	}

	for name, verdict := range map[string]dto.EligibilityResponse{"denied": deniedVerdict(), "allowed": allowed} {
		t.Run(name, func(t *testing.T) {
			actor := studentActor(3)
			app := newEligibilityApp(&stubEligibilityService{verdict: verdict}, &actor)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/students/3/exam-boards/9/eligibility", nil))
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			resp.Body.Close()

			var payload interface{}
			require.NoError(t, json.Unmarshal(body, &payload))
			require.NoError(t, schema.Validate(payload))
		})
	}
}

func TestEligibilityContractRejectsNullReasons(t *testing.T) {
	schema := compileSchema(t, "eligibility.schema.json")

	var payload interface{}
	require.NoError(t, json.Unmarshal([]byte(`{
		"success": true,
		"message": "exam eligibility evaluated",
		"data": {
			"action": "exam_registration",
			"student_id": 3,
			"subject_id": 12,
			"allowed": false,
			"reasons": null,
			"version_policy": "fallback",
			"evaluated_at": "2025-03-01T12:00:00Z"
		}
	}`), &payload))
	require.Error(t, schema.Validate(payload))
}
