package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrStudentNotFound indicates the student does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrSubjectNotFound indicates the subject does not exist.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrExamBoardNotFound indicates the exam board does not exist.
	ErrExamBoardNotFound = errors.New("exam board not found")
	// ErrRegularityNotFound indicates the regularity does not exist or belongs to another student.
	ErrRegularityNotFound = errors.New("regularity not found")
	// ErrExamRegistrationNotFound indicates the exam registration does not exist.
	ErrExamRegistrationNotFound = errors.New("exam registration not found")
	// ErrForbidden indicates the actor may not act on the requested record.
	ErrForbidden = errors.New("insufficient permissions for this student")
	// ErrAlreadyApproved indicates the subject is already approved for the student.
	ErrAlreadyApproved = errors.New("subject already approved")
	// ErrUnsupportedUpload indicates the uploaded file is not a text CSV.
	ErrUnsupportedUpload = errors.New("upload must be a CSV text file")
	// ErrUploadTooLarge indicates the upload exceeded the import limit.
	ErrUploadTooLarge = errors.New("upload exceeds maximum allowed size")
)

// ValidationError reports malformed input such as an invalid date, year or kind.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// notFound maps gorm's missing-record error onto a domain sentinel.
func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
