// Package prompt submits templated, schema-checked requests to a hosted
// language model.
//
// A Prompt is defined once from a Definition (name, model, system text and a
// text/template over the input struct) and invoked many times. Each Invoke
// validates the input, renders the template, performs exactly one Model call
// and decodes the answer into the output type, validating it against its
// struct tags. Every failure is reported as a *GenerationError.
package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/ai4care/ai4care/internal/prompt"

// Model is a hosted language model able to answer with JSON.
type Model interface {
	// Generate performs one completion and returns the raw message content.
	Generate(ctx context.Context, req Request) (string, error)
	// Name identifies the provider for logs and metrics.
	Name() string
}

// Request is what a Prompt hands to its Model.
type Request struct {
	// Prompt is the definition name, used as the schema name.
	Prompt string
	// Model overrides the provider's default model when non-empty.
	Model string
	// System is the instruction message.
	System string
	// User is the rendered template.
	User string
	// Output is a zero value of the expected result; providers derive the
	// JSON schema from it.
	Output any
}

// Recorder receives one observation per model call.
type Recorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
}

// Definition describes one prompt.
type Definition struct {
	Name     string
	Model    string
	System   string
	Template string
}

// InvokerConfig holds what every prompt shares.
type InvokerConfig struct {
	Model   Model
	Logger  zerolog.Logger
	Metrics Recorder
}

// Invoker binds prompts to a model.
type Invoker struct {
	model    Model
	logger   zerolog.Logger
	metrics  Recorder
	validate *validator.Validate
}

// NewInvoker creates an Invoker for cfg.Model.
func NewInvoker(cfg InvokerConfig) *Invoker {
	return &Invoker{
		model:    cfg.Model,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Prompt is a compiled Definition with typed input and output.
type Prompt[In, Out any] struct {
	def     Definition
	tmpl    *template.Template
	invoker *Invoker
}

// Define compiles def against inv. The template is parsed with
// missingkey=error so a misspelled placeholder fails on first use.
func Define[In, Out any](inv *Invoker, def Definition) (*Prompt[In, Out], error) {
	if def.Name == "" {
		return nil, fmt.Errorf("prompt: definition has no name")
	}
	tmpl, err := template.New(def.Name).Option("missingkey=error").Parse(def.Template)
	if err != nil {
		return nil, fmt.Errorf("prompt %s: parsing template: %w", def.Name, err)
	}
	return &Prompt[In, Out]{def: def, tmpl: tmpl, invoker: inv}, nil
}

// Name returns the definition name.
func (p *Prompt[In, Out]) Name() string {
	return p.def.Name
}

// Render expands the template for in without calling the model.
func (p *Prompt[In, Out]) Render(in In) (string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, in); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// Invoke runs the prompt once. On success the returned value satisfies the
// output type's validation tags; otherwise the error is a *GenerationError
// and the zero Out is returned.
func (p *Prompt[In, Out]) Invoke(ctx context.Context, in In) (Out, error) {
	var zero Out

	ctx, span := otel.Tracer(tracerName).Start(ctx, "prompt."+p.def.Name)
	defer span.End()

	fail := func(stage Stage, err error) (Out, error) {
		genErr := &GenerationError{Prompt: p.def.Name, Stage: stage, Err: err}
		span.RecordError(genErr)
		span.SetStatus(codes.Error, string(stage))
		return zero, genErr
	}

	if err := p.invoker.validate.Struct(in); err != nil {
		return fail(StageInput, err)
	}

	user, err := p.Render(in)
	if err != nil {
		return fail(StageRender, err)
	}

	model := p.invoker.model
	span.SetAttributes(
		attribute.String("prompt.provider", model.Name()),
		attribute.String("prompt.model", p.def.Model),
	)

	start := time.Now()
	content, err := model.Generate(ctx, Request{
		Prompt: p.def.Name,
		Model:  p.def.Model,
		System: p.def.System,
		User:   user,
		Output: zero,
	})
	elapsed := time.Since(start)
	if p.invoker.metrics != nil {
		p.invoker.metrics.RecordRequest(model.Name(), p.def.Name, elapsed, err)
	}
	if err != nil {
		p.invoker.logger.Error().Err(err).
			Str("prompt", p.def.Name).
			Dur("duration", elapsed).
			Msg("model call failed")
		return fail(StageProvider, err)
	}

	var out Out
	if err := decode(content, &out); err != nil {
		p.invoker.logger.Warn().Err(err).
			Str("prompt", p.def.Name).
			Int("content_length", len(content)).
			Msg("model answer is not valid JSON")
		return fail(StageDecode, err)
	}

	if err := p.invoker.validate.Struct(out); err != nil {
		p.invoker.logger.Warn().Err(err).
			Str("prompt", p.def.Name).
			Msg("model answer does not match output schema")
		return fail(StageValidate, err)
	}

	p.invoker.logger.Debug().
		Str("prompt", p.def.Name).
		Dur("duration", elapsed).
		Msg("prompt completed")

	return out, nil
}

var fencedJSON = regexp.MustCompile("(?s)^```(?:json)?\\s*(.+?)\\s*```$")

// decode parses content as JSON, accepting an answer wrapped in a single
// markdown code fence.
func decode(content string, target any) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyResponse
	}
	if m := fencedJSON.FindStringSubmatch(content); len(m) == 2 {
		content = m[1]
	}
	return json.Unmarshal([]byte(content), target)
}
