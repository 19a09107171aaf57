package triage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ai4care/ai4care/internal/prompt"
)

// FallbackExplanation is returned by GetExplainedOutcome whenever the
// explanation cannot be generated.
const FallbackExplanation = "Sorry, we could not generate a more detailed explanation at this time."

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	Model prompt.Model
	// ModelName is passed to the provider with every prompt; empty uses the
	// provider default.
	ModelName string
	Metrics   prompt.Recorder
	// Verdicts counts completed triage results (optional).
	Verdicts VerdictCounter
	Logger   zerolog.Logger
}

// VerdictCounter observes each verdict returned by GetTriageResult.
type VerdictCounter interface {
	RecordVerdict(level string)
}

// Pipeline runs the analyze, triage and explain prompts.
type Pipeline struct {
	analyze  *prompt.Prompt[analyzeInput, Verdict]
	triage   *prompt.Prompt[triageInput, Verdict]
	explain  *prompt.Prompt[explainInput, Explanation]
	verdicts VerdictCounter
	logger   zerolog.Logger
}

// NewPipeline compiles the three prompts against cfg.Model.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("triage: model is required")
	}

	inv := prompt.NewInvoker(prompt.InvokerConfig{
		Model:   cfg.Model,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})

	analyze, err := prompt.Define[analyzeInput, Verdict](inv, analyzeDefinition(cfg.ModelName))
	if err != nil {
		return nil, err
	}
	triage, err := prompt.Define[triageInput, Verdict](inv, triageDefinition(cfg.ModelName))
	if err != nil {
		return nil, err
	}
	explain, err := prompt.Define[explainInput, Explanation](inv, explainDefinition(cfg.ModelName))
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		analyze:  analyze,
		triage:   triage,
		explain:  explain,
		verdicts: cfg.Verdicts,
		logger:   cfg.Logger.With().Str("component", "triage").Logger(),
	}, nil
}

// GetTriageResult classifies a validated symptom report. The input is
// checked again so that a bad report never reaches the model. Model failures
// are returned wrapped in ErrAnalysisFailed.
func (p *Pipeline) GetTriageResult(ctx context.Context, in SymptomInput) (TriageResult, error) {
	if err := in.Validate(); err != nil {
		return TriageResult{}, err
	}

	description := ComposeDescription(in)

	verdict, err := p.AnalyzeSymptoms(ctx, description)
	if err != nil {
		p.logger.Error().Err(err).Msg("triage analysis failed")
		return TriageResult{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	if p.verdicts != nil {
		p.verdicts.RecordVerdict(verdict.UrgencyLevel.String())
	}
	p.logger.Info().
		Str("urgency", verdict.UrgencyLevel.String()).
		Int("pain_level", in.PainLevel).
		Msg("triage completed")

	return TriageResult{
		UrgencyLevel:       verdict.UrgencyLevel,
		Reasoning:          verdict.Reasoning,
		SymptomDescription: description,
	}, nil
}

// GetExplainedOutcome asks the model to explain result in plain language.
// It never fails: any error yields FallbackExplanation. A result that did
// not come from GetTriageResult is accepted.
func (p *Pipeline) GetExplainedOutcome(ctx context.Context, result TriageResult) string {
	out, err := p.explain.Invoke(ctx, explainInput{
		SymptomDescription: result.SymptomDescription,
		TriageOutcome:      result.UrgencyLevel.String(),
		Reasoning:          result.Reasoning,
	})
	if err != nil {
		p.logger.Warn().Err(err).Msg("explanation unavailable, using fallback")
		return FallbackExplanation
	}
	return out.Explanation
}

// AnalyzeSymptoms runs the analyze prompt on free text.
func (p *Pipeline) AnalyzeSymptoms(ctx context.Context, symptoms string) (Verdict, error) {
	return p.analyze.Invoke(ctx, analyzeInput{Symptoms: symptoms})
}

// TriageUrgency derives a verdict from an existing symptom analysis. It has
// the same output contract as AnalyzeSymptoms.
func (p *Pipeline) TriageUrgency(ctx context.Context, symptomAnalysis string) (Verdict, error) {
	return p.triage.Invoke(ctx, triageInput{SymptomAnalysis: symptomAnalysis})
}
