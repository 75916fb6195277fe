package report

import "errors"

// Input validation errors. They are a refusal to proceed; nothing is
// committed when one is returned.
var (
	ErrTemplateRequired    = errors.New("a test template must be selected")
	ErrPatientNameRequired = errors.New("patient name is required")
	ErrPatientAgeRequired  = errors.New("patient age is required")
	ErrInvalidPatientAge   = errors.New("patient age must be a non-negative whole number")
	ErrNoTests             = errors.New("at least one test is required")
	ErrInvalidStatus       = errors.New("invalid report status")
	ErrInvalidGender       = errors.New("invalid patient gender")
)

var ErrReportNotFound = errors.New("report not found")

// IsValidation reports whether err is an input validation error.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrTemplateRequired, ErrPatientNameRequired, ErrPatientAgeRequired,
		ErrInvalidPatientAge, ErrNoTests, ErrInvalidStatus, ErrInvalidGender,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
