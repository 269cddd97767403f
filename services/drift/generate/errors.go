package generate

import "errors"

var (
	// ErrMissingAPIKey indicates no API key was configured or found in
	// the environment.
	ErrMissingAPIKey = errors.New("openai api key not configured")

	// ErrInvalidRequest indicates a generation request missing required
	// fields.
	ErrInvalidRequest = errors.New("invalid generation request")

	// ErrEmptyCompletion indicates the model returned no usable content.
	ErrEmptyCompletion = errors.New("model returned empty completion")
)
