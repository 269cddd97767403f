package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Config holds OpenAI generator configuration.
type Config struct {
	// APIKey authenticates against the OpenAI API. Falls back to the
	// OPENAI_API_KEY environment variable when empty.
	APIKey string

	// Model is the chat model identifier.
	Model string

	// RequestsPerMinute caps the client-side call rate. Zero or negative
	// disables rate limiting.
	RequestsPerMinute float64

	// Burst is the rate limiter burst size.
	Burst int

	// MaxRetries bounds retry attempts on transient failures.
	MaxRetries uint64

	// MaxTokens caps completion length.
	MaxTokens int

	// Temperature controls sampling; documentation wants it low.
	Temperature float32

	// Logger for request-level events. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Model:             "gpt-4o-mini",
		RequestsPerMinute: 30,
		Burst:             2,
		MaxRetries:        3,
		MaxTokens:         4096,
		Temperature:       0.2,
	}
}

// chatCompleter is the slice of the OpenAI client the generator uses.
// Tests substitute a fake.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIGenerator produces documentation through the OpenAI chat API with
// client-side rate limiting and bounded retries.
//
// # Thread Safety
//
// Safe for concurrent use.
type OpenAIGenerator struct {
	client      chatCompleter
	model       string
	limiter     *rate.Limiter
	maxRetries  uint64
	maxTokens   int
	temperature float32
	logger      *slog.Logger

	// retryInterval seeds the exponential backoff schedule.
	retryInterval time.Duration
}

// NewOpenAIGenerator creates a generator from the configuration.
//
// # Inputs
//
//   - cfg: Generator configuration. See Config field docs for fallbacks.
//
// # Outputs
//
//   - *OpenAIGenerator: The configured generator.
//   - error: ErrMissingAPIKey when no key is configured or in the
//     environment.
func NewOpenAIGenerator(cfg Config) (*OpenAIGenerator, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	model := cfg.Model
	if model == "" {
		model = DefaultConfig().Model
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), burst)
	}

	return &OpenAIGenerator{
		client:        openai.NewClient(apiKey),
		model:         model,
		limiter:       limiter,
		maxRetries:    cfg.MaxRetries,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		logger:        logger,
		retryInterval: 500 * time.Millisecond,
	}, nil
}

// Generate implements Generator.
//
// # Inputs
//
//   - ctx: Context for cancellation. Must not be nil.
//   - req: Generation request. FilePath and Source are required.
//
// # Outputs
//
//   - *Generated: The replacement markdown plus usage.
//   - error: ErrInvalidRequest for incomplete requests, ErrEmptyCompletion
//     when the model returns nothing, otherwise the wrapped API failure
//     after retries are exhausted.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (*Generated, error) {
	if req.FilePath == "" || req.Source == "" {
		return nil, fmt.Errorf("%w: file path and source are required", ErrInvalidRequest)
	}

	ctx, span := startGenerateSpan(ctx, req.FilePath, g.model)
	defer span.End()
	start := time.Now()

	// Rate limit before the first attempt; retries wait again through
	// the backoff schedule, not the limiter.
	if err := g.limiter.Wait(ctx); err != nil {
		recordGenerateMetrics(ctx, g.model, "rate_limit", time.Since(start), nil)
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	prompt := BuildPrompt(req)

	var resp openai.ChatCompletionResponse
	operation := func() error {
		var err error
		resp, err = g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			MaxTokens:   g.maxTokens,
			Temperature: g.temperature,
		})
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return backoff.Permanent(err)
		}
		g.logger.Warn("generation attempt failed, will retry",
			slog.String("file", req.FilePath),
			slog.String("error", err.Error()))
		return err
	}

	bo := backoff.NewExponentialBackOff()
	if g.retryInterval > 0 {
		bo.InitialInterval = g.retryInterval
	}
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, g.maxRetries), ctx))
	if err != nil {
		span.RecordError(err)
		recordGenerateMetrics(ctx, g.model, "error", time.Since(start), nil)
		return nil, fmt.Errorf("generating documentation for %s: %w", req.FilePath, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		recordGenerateMetrics(ctx, g.model, "empty", time.Since(start), nil)
		return nil, fmt.Errorf("%w: %s", ErrEmptyCompletion, req.FilePath)
	}

	gen := &Generated{
		Markdown:         strings.TrimSpace(resp.Choices[0].Message.Content) + "\n",
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	if gen.Model == "" {
		gen.Model = g.model
	}

	recordGenerateMetrics(ctx, g.model, "ok", time.Since(start), gen)
	setGenerateSpanResult(span, gen)
	return gen, nil
}

// isRetryable reports whether an OpenAI failure is worth retrying:
// rate limits, server errors, and transport failures. Auth and request
// shape errors are permanent.
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Bare transport errors carry no status; retry them.
	return true
}
