package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ipes/ipes-go-api/internal/dto"
	"github.com/ipes/ipes-go-api/internal/eligibility"
	"github.com/ipes/ipes-go-api/internal/middleware"
	"github.com/ipes/ipes-go-api/internal/models"
	"github.com/ipes/ipes-go-api/internal/observability"
)

const defaultImportMaxBytes = 2 << 20

var (
	importRequiredColumns = []string{"dni", "subject_code", "closing_date", "situation"}
	importDateLayouts     = []string{"2006-01-02", "02/01/2006"}
)

// RegularityImportService loads course closing records from a CSV upload.
type RegularityImportService interface {
	Import(ctx context.Context, actor middleware.Actor, content io.Reader) (dto.RegularityImportResponse, error)
}

type regularityImportService struct {
	repos     Repositories
	standing  StandingInvalidator
	activity  ActivityRecorder
	events    EventPublisher
	sanitizer *bluemonday.Policy
	maxBytes  int64
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewRegularityImportService constructs the CSV import service.
func NewRegularityImportService(repos Repositories, standing StandingInvalidator, activity ActivityRecorder, events EventPublisher, logger zerolog.Logger) RegularityImportService {
	return &regularityImportService{
		repos:     repos,
		standing:  standing,
		activity:  activity,
		events:    events,
		sanitizer: bluemonday.StrictPolicy(),
		maxBytes:  defaultImportMaxBytes,
		logger:    logger.With().Str("component", "regularity_import_service").Logger(),
		tracer:    otel.Tracer("github.com/ipes/ipes-go-api/internal/service/regularity_import"),
	}
}

// Import validates every row independently. Valid rows are upserted on (student, subject,
// closing date); invalid rows are reported and skipped.
func (s *regularityImportService) Import(ctx context.Context, actor middleware.Actor, content io.Reader) (dto.RegularityImportResponse, error) {
	ctx, span := s.tracer.Start(ctx, "regularity.import")
	defer span.End()

	if !actor.IsStaff() {
		span.SetStatus(codes.Error, "forbidden")
		return dto.RegularityImportResponse{}, ErrForbidden
	}

	data, err := s.read(content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload rejected")
		return dto.RegularityImportResponse{}, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid header")
		return dto.RegularityImportResponse{}, invalid("file", "missing CSV header")
	}
	columns, err := importColumns(header)
	if err != nil {
		span.SetStatus(codes.Error, "invalid header")
		return dto.RegularityImportResponse{}, err
	}

	response := dto.RegularityImportResponse{Errors: make([]dto.RegularityImportRowError, 0)}
	students := map[string]models.Student{}
	touched := map[uint]struct{}{}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			row := 0
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				row = parseErr.StartLine
			}
			response.Processed++
			response.Failed++
			response.Errors = append(response.Errors, dto.RegularityImportRowError{Row: row, Message: err.Error()})
			observability.RegularityImportRows().WithLabelValues("rejected").Inc()
			continue
		}
		if blankRecord(record) {
			continue
		}
		row, _ := reader.FieldPos(0)
		response.Processed++

		dni := columns.value(record, "dni")
		regularity, err := s.parseRow(ctx, columns, record, students)
		if err == nil {
			err = s.repos.Regularities.Upsert(ctx, &regularity)
		}
		if err != nil {
			response.Failed++
			response.Errors = append(response.Errors, dto.RegularityImportRowError{Row: row, DNI: dni, Message: rowMessage(err)})
			observability.RegularityImportRows().WithLabelValues("rejected").Inc()
			continue
		}

		response.Imported++
		touched[regularity.StudentID] = struct{}{}
		observability.RegularityImportRows().WithLabelValues("imported").Inc()
	}

	for studentID := range touched {
		if s.standing == nil {
			break
		}
		if err := s.standing.Invalidate(ctx, studentID); err != nil {
			s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate standing cache")
		}
	}

	span.SetAttributes(
		attribute.Int("import.processed", response.Processed),
		attribute.Int("import.imported", response.Imported),
		attribute.Int("import.failed", response.Failed),
	)

	summary := map[string]interface{}{
		"processed": response.Processed,
		"imported":  response.Imported,
		"failed":    response.Failed,
		"students":  len(touched),
	}
	recordQuietly(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "regularity.import",
		EntityType: "regularity",
		Metadata:   summary,
	})
	if response.Imported > 0 {
		publishQuietly(ctx, s.events, s.logger, EventRegularitiesImported, summary)
	}

	return response, nil
}

func (s *regularityImportService) read(content io.Reader) ([]byte, error) {
	if content == nil {
		return nil, invalid("file", "file is required")
	}

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(content, s.maxBytes+1)); err != nil {
		return nil, err
	}
	if int64(buf.Len()) > s.maxBytes {
		return nil, ErrUploadTooLarge
	}
	if buf.Len() == 0 {
		return nil, invalid("file", "file is empty")
	}

	if !isTextUpload(mimetype.Detect(buf.Bytes())) {
		return nil, ErrUnsupportedUpload
	}

	return bytes.TrimPrefix(buf.Bytes(), []byte("\xef\xbb\xbf")), nil
}

func isTextUpload(detected *mimetype.MIME) bool {
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("text/plain") || m.Is("text/csv") {
			return true
		}
	}
	return false
}

func (s *regularityImportService) parseRow(ctx context.Context, columns importColumnIndex, record []string, students map[string]models.Student) (models.Regularity, error) {
	dni := columns.value(record, "dni")
	if dni == "" {
		return models.Regularity{}, invalid("dni", "is required")
	}

	student, ok := students[dni]
	if !ok {
		found, err := s.repos.Students.GetByDNI(ctx, dni)
		if err != nil {
			return models.Regularity{}, notFound(err, ErrStudentNotFound)
		}
		student = found
		students[dni] = found
	}

	planIDs := make([]uint, 0, len(student.Plans))
	for _, plan := range student.Plans {
		planIDs = append(planIDs, plan.PlanID)
	}
	code := columns.value(record, "subject_code")
	subject, err := s.repos.Curriculum.FindSubjectByCode(ctx, planIDs, code)
	if err != nil {
		if notFound(err, ErrSubjectNotFound) == ErrSubjectNotFound {
			return models.Regularity{}, invalid("subject_code", "%q is not a subject of the student's plans", code)
		}
		return models.Regularity{}, err
	}

	closing, err := parseImportDate(columns.value(record, "closing_date"))
	if err != nil {
		return models.Regularity{}, err
	}

	situation, err := eligibility.ParseSituation(columns.value(record, "situation"))
	if err != nil {
		return models.Regularity{}, invalid("situation", "%s", err.Error())
	}

	regularity := models.Regularity{
		StudentID:   student.ID,
		SubjectID:   subject.ID,
		ClosingDate: closing,
		Situation:   situation,
		Notes:       strings.TrimSpace(s.sanitizer.Sanitize(columns.value(record, "notes"))),
	}

	if raw := columns.value(record, "final_grade"); raw != "" {
		grade, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil || grade < 0 || grade > 10 {
			return models.Regularity{}, invalid("final_grade", "%q must be a number between 0 and 10", raw)
		}
		regularity.FinalGrade = &grade
	}

	return regularity, nil
}

func parseImportDate(raw string) (time.Time, error) {
	for _, layout := range importDateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return eligibility.DateOnly(parsed), nil
		}
	}
	return time.Time{}, invalid("closing_date", "%q must use YYYY-MM-DD", raw)
}

type importColumnIndex map[string]int

func importColumns(header []string) (importColumnIndex, error) {
	columns := importColumnIndex{}
	for idx, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if key != "" {
			columns[key] = idx
		}
	}

	missing := make([]string, 0)
	for _, required := range importRequiredColumns {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, invalid("file", "missing columns: %s", strings.Join(missing, ", "))
	}
	return columns, nil
}

func (c importColumnIndex) value(record []string, column string) string {
	idx, ok := c[column]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func rowMessage(err error) string {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Error()
	case errors.Is(err, ErrStudentNotFound):
		return "no student with this dni"
	default:
		return fmt.Sprintf("could not store row: %v", err)
	}
}
