// Package gemini implements the recognition interface using Google's Gemini
// API. It sends the uploaded audio or picture together with an instruction
// prompt and parses the structured JSON reply into a recognition result.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"google.golang.org/genai"

	"github.com/foodiary/foodiary-api/internal/config"
	"github.com/foodiary/foodiary-api/internal/domain"
	"github.com/foodiary/foodiary-api/internal/recognition"
)

const (
	audioPrompt = `Listen to this meal description and identify what was eaten.
Reply with JSON only, no markdown, in this shape:
{"name": "<short meal name>", "icon": "<one emoji for the meal>", "foods": [{"name": "<food>", "quantity": "<amount with unit>"}]}`

	picturePrompt = `Look at this meal photo and identify what is on the plate.
Reply with JSON only, no markdown, in this shape:
{"name": "<short meal name>", "icon": "<one emoji for the meal>", "foods": [{"name": "<food>", "quantity": "<amount with unit>"}]}`
)

// responseSchema is the JSON structure the model is instructed to return.
type responseSchema struct {
	Name  string       `json:"name"`
	Icon  string       `json:"icon"`
	Foods []foodSchema `json:"foods"`
}

type foodSchema struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// GeminiRecognizer implements the recognition.Recognizer interface using
// Google's Gemini API.
type GeminiRecognizer struct {
	logger *slog.Logger
	config config.RecognitionConfig
	client *genai.Client
	model  string
}

// NewGeminiRecognizer creates a recognizer backed by the Gemini API.
func NewGeminiRecognizer(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.RecognitionConfig,
) (*GeminiRecognizer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", recognition.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", recognition.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			recognition.ErrInvalidConfig, err)
	}

	return &GeminiRecognizer{
		logger: logger.With("component", "gemini_recognizer"),
		config: cfg,
		client: client,
		model:  cfg.ModelName,
	}, nil
}

// Recognize identifies the meal described by the input file. Transient API
// failures are retried with exponential backoff; invalid or blocked
// responses fail immediately.
func (g *GeminiRecognizer) Recognize(
	ctx context.Context,
	input recognition.Input,
) (*recognition.Result, error) {
	if len(input.Data) == 0 {
		return nil, fmt.Errorf("%w: input file is empty", recognition.ErrRecognitionFailed)
	}

	prompt, err := promptFor(input.Type)
	if err != nil {
		return nil, err
	}

	parsed, err := g.callWithRetry(ctx, prompt, input)
	if err != nil {
		return nil, err
	}

	result, err := toResult(parsed)
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "meal recognized",
		"file_key", input.FileKey,
		"name", result.Name,
		"food_count", len(result.Foods))

	return result, nil
}

// promptFor selects the instruction prompt matching the input type.
func promptFor(inputType domain.InputType) (string, error) {
	switch inputType {
	case domain.InputTypeAudio:
		return audioPrompt, nil
	case domain.InputTypePicture:
		return picturePrompt, nil
	default:
		return "", fmt.Errorf("%w: unsupported input type %q",
			recognition.ErrRecognitionFailed, inputType)
	}
}

// callWithRetry calls the Gemini API with exponential backoff and jitter.
// Permanent errors (blocked content, malformed replies) are returned
// immediately; only API-level failures are retried.
func (g *GeminiRecognizer) callWithRetry(
	ctx context.Context,
	prompt string,
	input recognition.Input,
) (*responseSchema, error) {
	maxRetries := g.config.MaxRetries
	baseDelaySeconds := g.config.RetryDelaySeconds
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	if maxRetries < 0 {
		g.logger.WarnContext(ctx, "invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}

	if baseDelaySeconds < 1 {
		g.logger.WarnContext(ctx, "invalid retry delay value, using default", "base_delay_seconds", 2)
		baseDelaySeconds = 2
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(input.Data, input.ContentType),
		}, genai.RoleUser),
	}

	generateConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		g.logger.InfoContext(ctx, "making Gemini API call",
			"attempt", attemptNum,
			"max_attempts", maxRetries+1)

		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, generateConfig)

		parsed, parseErr := parseCandidate(resp, err)
		if parseErr == nil {
			g.logger.InfoContext(ctx, "Gemini API call successful", "attempt", attemptNum)
			return parsed, nil
		}

		g.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attemptNum,
			"error", parseErr)

		// Blocked or malformed responses will not improve on retry.
		if errors.Is(parseErr, recognition.ErrContentBlocked) ||
			errors.Is(parseErr, recognition.ErrInvalidResponse) {
			return nil, parseErr
		}

		if attempt >= maxRetries {
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d)",
				recognition.ErrTransientFailure, maxRetries)
		}

		// delay = baseDelay * (2^attempt) * (0.5 + rand(0, 0.5))
		backoffSeconds := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		jitterFactor := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoffSeconds * jitterFactor * float64(time.Second))

		g.logger.InfoContext(ctx, "retrying after delay",
			"attempt", attemptNum,
			"delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", recognition.ErrTransientFailure, ctx.Err())
		}
	}
}

// parseCandidate validates the API response and decodes its JSON body.
func parseCandidate(resp *genai.GenerateContentResponse, callErr error) (*responseSchema, error) {
	if callErr != nil {
		return nil, fmt.Errorf("gemini API call error: %w", callErr)
	}

	if resp == nil {
		return nil, fmt.Errorf("%w: nil response", recognition.ErrInvalidResponse)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no content generated", recognition.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: content blocked by safety filters", recognition.ErrContentBlocked)
	}

	if candidate.Content == nil {
		return nil, fmt.Errorf("%w: empty content in response", recognition.ErrInvalidResponse)
	}

	text := ""
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text += part.Text
		}
	}

	var parsed responseSchema
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v",
			recognition.ErrInvalidResponse, err)
	}

	return &parsed, nil
}

// toResult validates the decoded schema and maps it to a recognition result.
func toResult(parsed *responseSchema) (*recognition.Result, error) {
	if parsed == nil {
		return nil, fmt.Errorf("%w: response is nil", recognition.ErrInvalidResponse)
	}

	if parsed.Name == "" {
		return nil, fmt.Errorf("%w: missing meal name", recognition.ErrInvalidResponse)
	}

	if parsed.Icon == "" {
		return nil, fmt.Errorf("%w: missing meal icon", recognition.ErrInvalidResponse)
	}

	foods := make([]domain.Food, 0, len(parsed.Foods))
	for i, food := range parsed.Foods {
		if food.Name == "" {
			return nil, fmt.Errorf("%w: food %d missing name", recognition.ErrInvalidResponse, i)
		}
		foods = append(foods, domain.Food{
			Name:     food.Name,
			Quantity: food.Quantity,
		})
	}

	return &recognition.Result{
		Name:  parsed.Name,
		Icon:  parsed.Icon,
		Foods: foods,
	}, nil
}

// Ensure GeminiRecognizer implements recognition.Recognizer
var _ recognition.Recognizer = (*GeminiRecognizer)(nil)
