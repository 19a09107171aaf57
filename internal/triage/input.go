package triage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// PainType is the kind of pain reported with the symptoms.
type PainType string

const (
	PainAching    PainType = "Aching"
	PainBurning   PainType = "Burning"
	PainCramping  PainType = "Cramping"
	PainDull      PainType = "Dull"
	PainSharp     PainType = "Sharp"
	PainShooting  PainType = "Shooting"
	PainStabbing  PainType = "Stabbing"
	PainThrobbing PainType = "Throbbing"
	PainOther     PainType = "Other"
)

// PainTypes is the fixed choice list offered by the intake form.
var PainTypes = []PainType{
	PainAching, PainBurning, PainCramping, PainDull, PainSharp,
	PainShooting, PainStabbing, PainThrobbing, PainOther,
}

// Limits of the intake form.
const (
	MinDescriptionLength = 20
	MaxDescriptionLength = 4000
	MinPainLevel         = 0
	MaxPainLevel         = 10
	MaxPainTypeLength    = 100
)

// Field names used in FieldError.
const (
	FieldSymptomDescription = "symptomDescription"
	FieldPainLevel          = "painLevel"
	FieldPainType           = "painType"
)

// SymptomForm is a symptom report as submitted, before validation.
type SymptomForm struct {
	SymptomDescription string `json:"symptomDescription"`
	PainLevel          string `json:"painLevel"`
	PainType           string `json:"painType"`
}

// SymptomInput is a validated symptom report.
type SymptomInput struct {
	SymptomDescription string   `json:"symptomDescription" validate:"required,min=20,max=4000"`
	PainLevel          int      `json:"painLevel" validate:"gte=0,lte=10"`
	PainType           PainType `json:"painType" validate:"required,max=100"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

var fieldMessages = map[string]string{
	FieldSymptomDescription: fmt.Sprintf("Please provide a detailed description of at least %d characters.", MinDescriptionLength),
	FieldPainLevel:          "Please select a pain level.",
	FieldPainType:           "Please select a pain type.",
}

// ParseSymptomForm validates form and converts it into a SymptomInput.
// Every invalid field is reported in the returned *ValidationError.
func ParseSymptomForm(form SymptomForm) (SymptomInput, error) {
	var fields []FieldError

	level, err := strconv.Atoi(strings.TrimSpace(form.PainLevel))
	if err != nil {
		fields = append(fields, FieldError{Field: FieldPainLevel, Message: fieldMessages[FieldPainLevel]})
		// keep checking the other fields
		level = MinPainLevel
	}

	in := SymptomInput{
		SymptomDescription: strings.TrimSpace(form.SymptomDescription),
		PainLevel:          level,
		PainType:           PainType(strings.TrimSpace(form.PainType)),
	}

	if err := in.Validate(); err != nil {
		ve, ok := AsValidationError(err)
		if !ok {
			return SymptomInput{}, err
		}
		fields = append(fields, ve.Fields...)
	}

	if len(fields) > 0 {
		return SymptomInput{}, &ValidationError{Fields: fields}
	}
	return in, nil
}

// Validate checks the bounds of an already typed report.
func (in SymptomInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		name := jsonFieldName(fe.StructField())
		msg := fieldMessages[name]
		if name == FieldSymptomDescription && fe.Tag() == "max" {
			msg = fmt.Sprintf("Please keep the description under %d characters.", MaxDescriptionLength)
		}
		if name == FieldPainType && fe.Tag() == "max" {
			msg = fmt.Sprintf("Please keep the pain type under %d characters.", MaxPainTypeLength)
		}
		fields = append(fields, FieldError{Field: name, Message: msg})
	}
	return &ValidationError{Fields: fields}
}

// IsKnown reports whether pt is one of the listed choices, ignoring case.
func (pt PainType) IsKnown() bool {
	for _, known := range PainTypes {
		if strings.EqualFold(string(pt), string(known)) {
			return true
		}
	}
	return false
}

func jsonFieldName(structField string) string {
	switch structField {
	case "SymptomDescription":
		return FieldSymptomDescription
	case "PainLevel":
		return FieldPainLevel
	case "PainType":
		return FieldPainType
	}
	return structField
}

// ComposeDescription renders the description block sent to the model and
// kept on the TriageResult.
func ComposeDescription(in SymptomInput) string {
	return fmt.Sprintf("Symptom Description: %s\nPain Level: %d/10\nPain Type: %s",
		in.SymptomDescription, in.PainLevel, in.PainType)
}
