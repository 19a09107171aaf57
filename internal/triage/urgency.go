// Package triage holds the symptom and urgency data contracts and the
// pipeline that turns a symptom report into an urgency verdict.
package triage

import (
	"fmt"
	"strings"
)

// UrgencyLevel is the triage verdict. The set is closed.
type UrgencyLevel string

const (
	// UrgencyRed means immediate attention is required.
	UrgencyRed UrgencyLevel = "red"
	// UrgencyYellow means attention is needed soon.
	UrgencyYellow UrgencyLevel = "yellow"
	// UrgencyGreen means the condition is not urgent.
	UrgencyGreen UrgencyLevel = "green"
)

// UrgencyLevels lists every level, most severe first.
var UrgencyLevels = []UrgencyLevel{UrgencyRed, UrgencyYellow, UrgencyGreen}

// severity ranks levels for display. UrgencyLevel defines no ordering of its
// own; callers sort through Severity.
var severity = map[UrgencyLevel]int{
	UrgencyRed:    3,
	UrgencyYellow: 2,
	UrgencyGreen:  1,
}

// ParseUrgencyLevel accepts a level name in any case.
func ParseUrgencyLevel(s string) (UrgencyLevel, error) {
	level := UrgencyLevel(strings.ToLower(strings.TrimSpace(s)))
	if err := level.Validate(); err != nil {
		return "", err
	}
	return level, nil
}

// Validate reports whether l is one of red, yellow or green.
func (l UrgencyLevel) Validate() error {
	if _, ok := severity[l]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownUrgency, string(l))
	}
	return nil
}

// String returns the level name.
func (l UrgencyLevel) String() string {
	return string(l)
}

// Severity returns 3 for red, 2 for yellow, 1 for green and 0 otherwise.
func Severity(l UrgencyLevel) int {
	return severity[l]
}

// Verdict is the structured answer of the analyze and triage prompts.
type Verdict struct {
	UrgencyLevel UrgencyLevel `json:"urgencyLevel" validate:"required,oneof=red yellow green" enum:"red,yellow,green" description:"The urgency level of the case. Red indicates immediate attention is required, yellow indicates attention is needed soon, and green indicates the condition is not urgent."`
	Reasoning    string       `json:"reasoning" validate:"required" description:"A detailed explanation of the reasoning for the assigned urgency level."`
}

// TriageResult is a verdict together with the description it was derived
// from. The description is reused verbatim for the explanation step.
type TriageResult struct {
	UrgencyLevel       UrgencyLevel `json:"urgencyLevel" validate:"required,oneof=red yellow green"`
	Reasoning          string       `json:"reasoning" validate:"required"`
	SymptomDescription string       `json:"symptomDescription" validate:"required"`
}

// Verdict returns the verdict part of r.
func (r TriageResult) Verdict() Verdict {
	return Verdict{UrgencyLevel: r.UrgencyLevel, Reasoning: r.Reasoning}
}
