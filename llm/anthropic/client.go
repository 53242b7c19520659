// Package anthropic implements llm.CompletionClient on top of the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/arvolve/arx-go-sdk/core"
	"github.com/arvolve/arx-go-sdk/llm"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 4096
)

// Client is an Anthropic-backed CompletionClient. All failures come back
// classified so callers can branch on core.ErrRateLimited, core.ErrTimeout,
// core.ErrServiceError, or core.ErrSchemaMismatch.
type Client struct {
	api     anthropic.Client
	model   string
	limiter *rate.Limiter
	policy  *llm.RetryPolicy
	log     *zap.Logger
}

// Option configures the client.
type Option func(*Client)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithLimiter applies a client-side rate limiter in front of every call.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetryPolicy retries recoverable failures per the given policy.
func WithRetryPolicy(p *llm.RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithLogger sets the structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a client around an anthropic.Client.
func New(api anthropic.Client, opts ...Option) *Client {
	c := &Client{
		api:   api,
		model: defaultModel,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Text implements llm.CompletionClient.
func (c *Client) Text(ctx context.Context, prompt string, opts *llm.Options) (string, error) {
	return c.complete(ctx, opts, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))
}

// Vision implements llm.CompletionClient.
func (c *Client) Vision(ctx context.Context, image llm.Image, prompt string, opts *llm.Options) (string, error) {
	return c.complete(ctx, opts, anthropic.NewUserMessage(
		anthropic.NewImageBlockBase64(image.MediaType, image.Data),
		anthropic.NewTextBlock(prompt),
	))
}

// Structured implements llm.CompletionClient. The schema is embedded in the
// instruction and the response is validated against it; non-conforming
// output fails with core.ErrSchemaMismatch so the caller can re-prompt.
func (c *Client) Structured(ctx context.Context, prompt string, schema map[string]interface{}, opts *llm.Options) (json.RawMessage, error) {
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	instructed := fmt.Sprintf(
		"%s\n\nRespond with a single JSON object conforming to this JSON Schema, with no surrounding prose:\n%s",
		prompt, schemaBytes)

	text, err := c.complete(ctx, opts, anthropic.NewUserMessage(anthropic.NewTextBlock(instructed)))
	if err != nil {
		return nil, err
	}

	raw := extractJSON(text)
	if err := llm.ValidateJSON(schema, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) complete(ctx context.Context, opts *llm.Options, messages ...anthropic.MessageParam) (string, error) {
	ctx, cancel := llm.WithTimeout(ctx, opts)
	defer cancel()

	params := c.params(opts, messages)

	var text string
	call := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return classify(err)
			}
		}
		resp, err := c.api.Messages.New(ctx, params)
		if err != nil {
			return classify(err)
		}
		text = textContent(resp)
		return nil
	}

	var err error
	if c.policy != nil {
		err = c.policy.Do(ctx, call)
	} else {
		err = call()
	}
	if err != nil {
		return "", err
	}

	c.log.Debug("completion ok",
		zap.String("model", string(params.Model)),
		zap.Int("chars", len(text)))
	return text, nil
}

func (c *Client) params(opts *llm.Options, messages []anthropic.MessageParam) anthropic.MessageNewParams {
	model := c.model
	maxTokens := int64(defaultMaxTokens)
	var system string
	var temperature *float64

	if opts != nil {
		if opts.Model != "" {
			model = opts.Model
		}
		if opts.MaxTokens > 0 {
			maxTokens = int64(opts.MaxTokens)
		}
		system = opts.SystemPrompt
		if opts.Temperature > 0 {
			temperature = &opts.Temperature
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if temperature != nil {
		params.Temperature = anthropic.Float(*temperature)
	}
	return params
}

// textContent concatenates the text blocks of a response.
func textContent(resp *anthropic.Message) string {
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// extractJSON pulls the outermost JSON object out of a completion, tolerating
// markdown fences and stray prose around it.
func extractJSON(text string) []byte {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return []byte(strings.TrimSpace(text))
	}
	return []byte(text[start : end+1])
}

// classify maps transport and API errors onto the shared failure taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", core.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 429:
			return fmt.Errorf("%w: %v", core.ErrRateLimited, err)
		case apierr.StatusCode == 408 || apierr.StatusCode == 504:
			return fmt.Errorf("%w: %v", core.ErrTimeout, err)
		default:
			return fmt.Errorf("%w: %v", core.ErrServiceError, err)
		}
	}
	return fmt.Errorf("%w: %v", core.ErrServiceError, err)
}
