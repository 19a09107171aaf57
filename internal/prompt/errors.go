package prompt

import "errors"

// Sentinel errors reported by models.
var (
	// ErrEmptyResponse means the model returned no content.
	ErrEmptyResponse = errors.New("model returned an empty response")
	// ErrProviderUnavailable means the provider could not be reached or
	// answered with a server error.
	ErrProviderUnavailable = errors.New("model provider unavailable")
	// ErrRateLimited means the provider rejected the call for quota reasons.
	ErrRateLimited = errors.New("model provider rate limit exceeded")
)

// Stage names the step of an invocation that failed.
type Stage string

const (
	StageInput    Stage = "input"
	StageRender   Stage = "render"
	StageProvider Stage = "provider"
	StageDecode   Stage = "decode"
	StageValidate Stage = "validate"
)

// GenerationError is the single failure type of Prompt.Invoke.
type GenerationError struct {
	Prompt string
	Stage  Stage
	Err    error
}

func (e *GenerationError) Error() string {
	msg := "prompt " + e.Prompt + ": " + string(e.Stage) + " failed"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsGenerationError reports whether err is or wraps a *GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}
