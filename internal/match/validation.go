package match

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"atsmatch/internal/errors"
	"atsmatch/internal/extract"
	"atsmatch/internal/types"

	"github.com/go-playground/validator/v10"
)

// newValidator registers the document_ext tag used on types.Document
func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("document_ext", func(fl validator.FieldLevel) bool {
		ext := strings.ToLower(filepath.Ext(fl.Field().String()))
		return ext == "" || slices.Contains(extract.SupportedExtensions(), ext)
	})
	return validate
}

// validateRequest maps validator failures onto application errors
func (p *Pipeline) validateRequest(req types.MatchRequest) error {
	err := p.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !stderrors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Invalid match request", err)
	}

	first := fieldErrors[0]
	if first.Tag() == "document_ext" {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Unsupported resume format. Supported formats: %s",
				strings.Join(extract.SupportedExtensions(), ", ")), nil).
			WithContext("filename", first.Value())
	}

	return errors.NewValidationError(errors.ErrCodeMissingResume, "Please upload a resume file", nil).
		WithContext("field", first.Namespace())
}
