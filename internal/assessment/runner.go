package assessment

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ai4care/ai4care/internal/triage"
)

// Triager is the part of triage.Pipeline a Runner needs.
type Triager interface {
	GetTriageResult(ctx context.Context, in triage.SymptomInput) (triage.TriageResult, error)
	GetExplainedOutcome(ctx context.Context, result triage.TriageResult) string
}

// Recorder stores completed verdicts. Implementations must not fail loudly.
type Recorder interface {
	Record(result triage.TriageResult, at time.Time)
}

// Runner drives a Session through the pipeline.
type Runner struct {
	session *Session
	triager Triager
	log     Recorder
	logger  zerolog.Logger
}

// NewRunner creates a Runner. log may be nil.
func NewRunner(session *Session, triager Triager, log Recorder, logger zerolog.Logger) *Runner {
	return &Runner{session: session, triager: triager, log: log, logger: logger}
}

// Session returns the driven session.
func (r *Runner) Session() *Session {
	return r.session
}

// Assess submits in and waits for the verdict. It returns ErrStale when the
// session moved on to another assessment meanwhile.
func (r *Runner) Assess(ctx context.Context, in triage.SymptomInput) (Token, triage.TriageResult, error) {
	tok := r.session.Submit()

	result, err := r.triager.GetTriageResult(ctx, in)
	if err != nil {
		if ferr := r.session.Fail(tok, err); ferr != nil {
			return tok, triage.TriageResult{}, ferr
		}
		return tok, triage.TriageResult{}, err
	}

	if err := r.session.Complete(tok, result); err != nil {
		r.logger.Debug().Str("assessment_id", tok.AssessmentID).Msg("discarding stale verdict")
		return tok, triage.TriageResult{}, err
	}

	if r.log != nil {
		r.log.Record(result, time.Now())
	}
	return tok, result, nil
}

// Explain fetches the explanation for the assessment tok refers to. The
// returned text is never empty; the error is only ErrStale or
// ErrInvalidTransition.
func (r *Runner) Explain(ctx context.Context, tok Token) (string, error) {
	result, err := r.session.RequestExplanation(tok)
	if err != nil {
		return "", err
	}

	text := r.triager.GetExplainedOutcome(ctx, result)
	if err := r.session.ResolveExplanation(tok, text, text == triage.FallbackExplanation); err != nil {
		return "", err
	}
	return text, nil
}
