package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FormValue is a form field that arrives either as a JSON string or a JSON
// number. Browsers post the pain level slider as text, API clients as a
// number; both reach validation as text.
type FormValue string

// UnmarshalJSON implements json.Unmarshaler for FormValue.
func (v *FormValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FormValue(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("form value must be a string or a number: %w", err)
		}
		*v = FormValue(n.String())
	}
	return nil
}

// TriageRequest is the body of POST /api/triage.
type TriageRequest struct {
	SymptomDescription string    `json:"symptomDescription"`
	PainLevel          FormValue `json:"painLevel"`
	PainType           string    `json:"painType"`
}

// UrgencyRequest is the body of POST /api/triage/urgency.
type UrgencyRequest struct {
	SymptomAnalysis string `json:"symptomAnalysis" validate:"required"`
}

// ExplanationResponse is returned by POST /api/triage/explanation.
type ExplanationResponse struct {
	Explanation string `json:"explanation"`
	Fallback    bool   `json:"fallback,omitempty"`
}
