package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/ipes/ipes-go-api/internal/dto"
	"github.com/ipes/ipes-go-api/internal/eligibility"
	"github.com/ipes/ipes-go-api/internal/models"
)

func TestEnrollmentServiceDeniedWritesNothing(t *testing.T) {
	f := newAcademicFixture(t)
	svc := f.enrollmentService()

	result, err := svc.Enroll(context.Background(), f.studentActor(), f.student.ID, dto.EnrollmentRequest{SubjectID: f.advanced.ID, AcademicYear: 2025})
	require.NoError(t, err)
	require.False(t, result.Eligibility.Allowed)
	require.Nil(t, result.Enrollment)
	require.False(t, result.Created)

	var count int64
	require.NoError(t, f.db.Model(&models.Enrollment{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestEnrollmentServiceIsIdempotent(t *testing.T) {
	f := newAcademicFixture(t)
	ctx := context.Background()
	svc := f.enrollmentService()
	f.regularity(t, f.intro.ID, day(2024, time.November, 29), eligibility.SituationRegular)

	req := dto.EnrollmentRequest{SubjectID: f.advanced.ID, AcademicYear: 2025}
	first, err := svc.Enroll(ctx, f.studentActor(), f.student.ID, req)
	require.NoError(t, err)
	require.True(t, first.Eligibility.Allowed)
	require.True(t, first.Created)
	require.NotNil(t, first.Enrollment)
	require.Equal(t, models.EnrollmentStatusActive, first.Enrollment.Status)

	second, err := svc.Enroll(ctx, f.studentActor(), f.student.ID, req)
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.Enrollment.ID, second.Enrollment.ID)

	var count int64
	require.NoError(t, f.db.Model(&models.Enrollment{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	audit, err := f.activity.List(ctx, f.staffActor(), dto.ActivityListRequest{Action: "enrollment.create"})
	require.NoError(t, err)
	require.Len(t, audit.Items, 1)
	require.Equal(t, "student", audit.Items[0].ActorRole)
}

func TestEnrollmentServiceValidatesRequest(t *testing.T) {
	f := newAcademicFixture(t)

	_, err := f.enrollmentService().Enroll(context.Background(), f.studentActor(), f.student.ID, dto.EnrollmentRequest{AcademicYear: 2025})
	var fieldErrors validator.ValidationErrors
	require.ErrorAs(t, err, &fieldErrors)
	require.Contains(t, f.validator.Details(err), "subject_id")
}
