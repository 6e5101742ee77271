package utils

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/ipes/ipes-go-api/internal/eligibility"
)

const (
	examOutcomeTag  = "exam_outcome"
	examOutcomeText = "{0} must be one of PENDING, APPROVED, FAILED, ABSENT, ABSENT_JUSTIFIED"
)

// Validator bundles the struct validator with its English translator.
type Validator struct {
	Validate   *validator.Validate
	Translator ut.Translator
}

// NewValidator builds a validator that reports fields by their JSON names.
func NewValidator() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(examOutcomeTag, func(fl validator.FieldLevel) bool {
		_, err := eligibility.ParseOutcome(fl.Field().String())
		return err == nil
	})
	registerTranslation(validate, translator, examOutcomeTag, examOutcomeText)

	return &Validator{Validate: validate, Translator: translator}
}

// Struct validates a payload.
func (v *Validator) Struct(payload interface{}) error {
	return v.Validate.Struct(payload)
}

// Details converts validation errors into a field to message map. It returns nil for any
// other error.
func (v *Validator) Details(err error) map[string]string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return nil
	}

	details := make(map[string]string, len(fieldErrors))
	for _, fe := range fieldErrors {
		details[fe.Field()] = fe.Translate(v.Translator)
	}
	return details
}

func registerTranslation(validate *validator.Validate, translator ut.Translator, tag, text string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}
