package triage

import (
	"errors"
	"strings"
)

var (
	// ErrUnknownUrgency is returned for a level outside red, yellow, green.
	ErrUnknownUrgency = errors.New("unknown urgency level")

	// ErrAnalysisFailed wraps every failure of the primary triage call.
	ErrAnalysisFailed = errors.New("analysis failed, try again")
)

// FieldError describes one invalid field of a symptom report.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a symptom report is rejected. It carries
// one FieldError per invalid field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid symptom report"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid symptom report: " + strings.Join(parts, "; ")
}

// Has reports whether field was rejected.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// AsValidationError extracts a *ValidationError from err's chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
