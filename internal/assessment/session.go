// Package assessment tracks one symptom assessment from submission to
// verdict and the optional explanation that follows it.
package assessment

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ai4care/ai4care/internal/triage"
)

// State is the phase of an assessment.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// ExplanationState is the phase of the explanation side-flow. It only
// leaves ExplanationNone from StateSucceeded.
type ExplanationState string

const (
	ExplanationNone      ExplanationState = "none"
	ExplanationRequested ExplanationState = "requested"
	ExplanationReady     ExplanationState = "ready"
	ExplanationFallback  ExplanationState = "fallback"
)

var (
	// ErrStale is returned when a completion belongs to an assessment that
	// has since been replaced. The completion is discarded.
	ErrStale = errors.New("stale assessment result discarded")

	// ErrInvalidTransition is returned when an event does not apply to the
	// current state.
	ErrInvalidTransition = errors.New("invalid assessment transition")
)

// Token identifies one submission. Completions carry the token they were
// started with.
type Token struct {
	AssessmentID string
	generation   uint64
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	AssessmentID     string
	State            State
	Result           *triage.TriageResult
	Err              error
	ExplanationState ExplanationState
	Explanation      string
	SubmittedAt      time.Time
	CompletedAt      time.Time
}

// Session holds the state of the active assessment. It is safe for
// concurrent use.
type Session struct {
	mu           sync.Mutex
	now          func() time.Time
	generation   uint64
	assessmentID string
	state        State
	result       *triage.TriageResult
	err          error
	explState    ExplanationState
	explanation  string
	submittedAt  time.Time
	completedAt  time.Time
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{
		now:       time.Now,
		state:     StateIdle,
		explState: ExplanationNone,
	}
}

// Submit starts a new submission from Idle or any terminal state and
// returns its token. A submission already in flight is superseded: its
// completion will be reported as stale.
func (s *Session) Submit() Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	s.assessmentID = uuid.NewString()
	s.state = StateSubmitting
	s.submittedAt = s.now()

	return Token{AssessmentID: s.assessmentID, generation: s.generation}
}

// Complete records a verdict for tok.
func (s *Session) Complete(tok Token, result triage.TriageResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(tok, StateSubmitting); err != nil {
		return err
	}
	s.state = StateSucceeded
	s.result = &result
	s.completedAt = s.now()
	return nil
}

// Fail records a failed submission for tok.
func (s *Session) Fail(tok Token, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(tok, StateSubmitting); err != nil {
		return err
	}
	s.state = StateFailed
	s.err = cause
	s.completedAt = s.now()
	return nil
}

// RequestExplanation moves a succeeded assessment to ExplanationRequested and
// returns the result to explain. Requesting again while one is pending, or
// after it resolved, is rejected.
func (s *Session) RequestExplanation(tok Token) (triage.TriageResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(tok, StateSucceeded); err != nil {
		return triage.TriageResult{}, err
	}
	if s.explState != ExplanationNone {
		return triage.TriageResult{}, ErrInvalidTransition
	}
	s.explState = ExplanationRequested
	return *s.result, nil
}

// ResolveExplanation stores the explanation text. fallback marks text that
// replaced a failed generation.
func (s *Session) ResolveExplanation(tok Token, text string, fallback bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(tok, StateSucceeded); err != nil {
		return err
	}
	if s.explState != ExplanationRequested {
		return ErrInvalidTransition
	}
	s.explanation = text
	s.explState = ExplanationReady
	if fallback {
		s.explState = ExplanationFallback
	}
	return nil
}

// NewAssessment returns to Idle from any state, discarding held results.
// In-flight completions become stale.
func (s *Session) NewAssessment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		AssessmentID:     s.assessmentID,
		State:            s.state,
		Err:              s.err,
		ExplanationState: s.explState,
		Explanation:      s.explanation,
		SubmittedAt:      s.submittedAt,
		CompletedAt:      s.completedAt,
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	return snap
}

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) checkLocked(tok Token, want State) error {
	if tok.generation != s.generation || tok.AssessmentID != s.assessmentID {
		return ErrStale
	}
	if s.state != want {
		return ErrInvalidTransition
	}
	return nil
}

func (s *Session) resetLocked() {
	s.generation++
	s.assessmentID = ""
	s.state = StateIdle
	s.result = nil
	s.err = nil
	s.explState = ExplanationNone
	s.explanation = ""
	s.submittedAt = time.Time{}
	s.completedAt = time.Time{}
}
