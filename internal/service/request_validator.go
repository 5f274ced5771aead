package service

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"brevity-server/internal/domain"

	"github.com/go-playground/validator/v10"
)

const minDocumentSize = 100

var pdfSignature = []byte("%PDF")

// RequestValidator checks a ConversionRequest before any work is done.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator registers the summary_style and theme tags against
// the embedded catalog.
func NewRequestValidator() *RequestValidator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]; name != "" && name != "-" {
			return name
		}
		return fld.Name
	})

	_ = v.RegisterValidation("summary_style", func(fl validator.FieldLevel) bool {
		_, ok := domain.LookupStyle(domain.SummaryStyle(fl.Field().String()))
		return ok
	})
	_ = v.RegisterValidation("theme", func(fl validator.FieldLevel) bool {
		_, ok := domain.LookupTheme(fl.Field().String())
		return ok
	})

	return &RequestValidator{validate: v}
}

// Validate returns a *domain.ValidationError for the first problem found.
func (rv *RequestValidator) Validate(req *domain.ConversionRequest) error {
	if req == nil {
		return &domain.ValidationError{Message: "request is required"}
	}

	if err := rv.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return toValidationError(fieldErrs[0])
		}
		return &domain.ValidationError{Message: err.Error()}
	}

	if len(req.Document) < minDocumentSize {
		return &domain.ValidationError{Field: "pdf", Message: fmt.Sprintf("document must be at least %d bytes", minDocumentSize)}
	}
	if !bytes.HasPrefix(req.Document, pdfSignature) {
		return &domain.ValidationError{Field: "pdf", Message: "file is not a PDF document"}
	}
	return nil
}

func toValidationError(fe validator.FieldError) *domain.ValidationError {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return &domain.ValidationError{Field: field, Message: "is required"}
	case "gte":
		return &domain.ValidationError{Field: field, Message: "must be at least " + fe.Param()}
	case "max":
		return &domain.ValidationError{Field: field, Message: "must be at most " + fe.Param() + " characters"}
	case "summary_style":
		return &domain.ValidationError{Field: field, Message: fmt.Sprintf("unknown summary type %q", valueString(fe.Value()))}
	case "theme":
		return &domain.ValidationError{Field: field, Message: fmt.Sprintf("unknown theme %q", valueString(fe.Value()))}
	default:
		return &domain.ValidationError{Field: field, Message: "failed " + fe.Tag() + " validation"}
	}
}

func valueString(v interface{}) string {
	switch t := v.(type) {
	case *string:
		if t != nil {
			return *t
		}
		return ""
	case string:
		return t
	case domain.SummaryStyle:
		return string(t)
	default:
		return fmt.Sprint(v)
	}
}
