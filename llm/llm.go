package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/arvolve/arx-go-sdk/core"
)

// Options tunes a single completion call. The zero value uses provider
// defaults.
type Options struct {
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64

	// Timeout bounds this one call. Zero means the caller's context deadline
	// is the only bound.
	Timeout time.Duration
}

// Image is an inline image for vision calls.
type Image struct {
	// MediaType is the MIME type, e.g. "image/png".
	MediaType string

	// Data is the base64-encoded image payload.
	Data string
}

// CompletionClient is the stateless text-completion collaborator. Every call
// accepts a timeout via Options and returns either a value or a classified
// failure: core.ErrRateLimited, core.ErrTimeout, core.ErrServiceError, or
// core.ErrSchemaMismatch.
type CompletionClient interface {
	// Text generates a plain text completion.
	Text(ctx context.Context, prompt string, opts *Options) (string, error)

	// Structured generates output conforming to the given JSON Schema object
	// and returns the raw JSON. Non-conforming output fails with a
	// core.ErrSchemaMismatch-classified error.
	Structured(ctx context.Context, prompt string, schema map[string]interface{}, opts *Options) (json.RawMessage, error)

	// Vision generates a text completion about an image.
	Vision(ctx context.Context, image Image, prompt string, opts *Options) (string, error)
}

// ValidateJSON checks raw against a JSON Schema object. A validation failure
// is classified as core.ErrSchemaMismatch so callers can trigger the
// corrective re-prompt path.
func ValidateJSON(schema map[string]interface{}, raw []byte) error {
	if !json.Valid(raw) {
		return fmt.Errorf("%w: output is not valid JSON", core.ErrSchemaMismatch)
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrSchemaMismatch, err)
	}
	if !result.Valid() {
		return fmt.Errorf("%w: %v", core.ErrSchemaMismatch, result.Errors())
	}
	return nil
}

// WithTimeout derives a context bounded by opts.Timeout, if set.
func WithTimeout(ctx context.Context, opts *Options) (context.Context, context.CancelFunc) {
	if opts != nil && opts.Timeout > 0 {
		return context.WithTimeout(ctx, opts.Timeout)
	}
	return ctx, func() {}
}
