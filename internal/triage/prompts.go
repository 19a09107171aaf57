package triage

import "github.com/ai4care/ai4care/internal/prompt"

const (
	PromptAnalyzeSymptoms = "analyzeSymptoms"
	PromptTriageUrgency   = "triageUrgency"
	PromptExplainOutcome  = "explainTriageOutcome"
)

type analyzeInput struct {
	Symptoms string `validate:"required"`
}

type triageInput struct {
	SymptomAnalysis string `validate:"required"`
}

type explainInput struct {
	SymptomDescription string `validate:"required"`
	TriageOutcome      string `validate:"required"`
	Reasoning          string `validate:"required"`
}

// Explanation is the structured answer of the explain prompt.
type Explanation struct {
	Explanation string `json:"explanation" validate:"required" description:"A clear explanation of the triage outcome for the patient, at most 200 words."`
}

func analyzeDefinition(model string) prompt.Definition {
	return prompt.Definition{
		Name:   PromptAnalyzeSymptoms,
		Model:  model,
		System: "You are an AI assistant that analyzes patient symptoms and determines the urgency level of the case.",
		Template: `Based on the symptoms provided, assess the urgency level (red, yellow or green) and provide a detailed explanation of your reasoning.
Red indicates immediate attention is required, yellow indicates attention is needed soon, and green indicates the condition is not urgent.

Symptoms:
{{.Symptoms}}`,
	}
}

func triageDefinition(model string) prompt.Definition {
	return prompt.Definition{
		Name:   PromptTriageUrgency,
		Model:  model,
		System: "You are an AI assistant that triages the urgency of a patient's condition.",
		Template: `Based on the following symptom analysis, determine the urgency level (red, yellow, or green) and provide a brief explanation for your decision.
Red means immediate attention is needed, yellow means urgent but not life-threatening, green means non-urgent.

Symptom Analysis: {{.SymptomAnalysis}}`,
	}
}

func explainDefinition(model string) prompt.Definition {
	return prompt.Definition{
		Name:   PromptExplainOutcome,
		Model:  model,
		System: "You are an AI assistant explaining a triage outcome to a patient.",
		Template: `The patient provided the following symptom description:
{{.SymptomDescription}}

The triage outcome is: {{.TriageOutcome}}
The reasoning behind the triage outcome is: {{.Reasoning}}

Provide a clear and concise explanation of the triage outcome, so the patient can understand the reasoning behind the assessment and trust the recommendation.
The explanation should be easy to understand for a non-medical professional and not exceed 200 words.
Focus on explaining the link between the symptoms, the reasoning, and the outcome.`,
	}
}
