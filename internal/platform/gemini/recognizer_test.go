package gemini

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/foodiary/foodiary-api/internal/domain"
	"github.com/foodiary/foodiary-api/internal/recognition"
)

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{{Text: text}},
				},
			},
		},
	}
}

func TestPromptFor(t *testing.T) {
	t.Parallel()

	t.Run("audio input gets the audio prompt", func(t *testing.T) {
		prompt, err := promptFor(domain.InputTypeAudio)

		require.NoError(t, err)
		assert.Equal(t, audioPrompt, prompt)
	})

	t.Run("picture input gets the picture prompt", func(t *testing.T) {
		prompt, err := promptFor(domain.InputTypePicture)

		require.NoError(t, err)
		assert.Equal(t, picturePrompt, prompt)
	})

	t.Run("unknown input types are rejected", func(t *testing.T) {
		_, err := promptFor(domain.InputType("video"))

		assert.ErrorIs(t, err, recognition.ErrRecognitionFailed)
	})
}

func TestParseCandidate(t *testing.T) {
	t.Parallel()

	t.Run("decodes a valid JSON reply", func(t *testing.T) {
		resp := textResponse(`{"name":"Café","icon":"🥐","foods":[{"name":"coffee","quantity":"1 cup"}]}`)

		parsed, err := parseCandidate(resp, nil)

		require.NoError(t, err)
		assert.Equal(t, "Café", parsed.Name)
		assert.Equal(t, "🥐", parsed.Icon)
		require.Len(t, parsed.Foods, 1)
		assert.Equal(t, "coffee", parsed.Foods[0].Name)
		assert.Equal(t, "1 cup", parsed.Foods[0].Quantity)
	})

	t.Run("call errors are passed through for retry", func(t *testing.T) {
		callErr := errors.New("connection reset")

		_, err := parseCandidate(nil, callErr)

		require.Error(t, err)
		assert.NotErrorIs(t, err, recognition.ErrInvalidResponse)
	})

	t.Run("nil response is invalid", func(t *testing.T) {
		_, err := parseCandidate(nil, nil)

		assert.ErrorIs(t, err, recognition.ErrInvalidResponse)
	})

	t.Run("empty candidate list is invalid", func(t *testing.T) {
		_, err := parseCandidate(&genai.GenerateContentResponse{}, nil)

		assert.ErrorIs(t, err, recognition.ErrInvalidResponse)
	})

	t.Run("safety-blocked responses map to content blocked", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{FinishReason: genai.FinishReasonSafety},
			},
		}

		_, err := parseCandidate(resp, nil)

		assert.ErrorIs(t, err, recognition.ErrContentBlocked)
	})

	t.Run("non-JSON replies are invalid", func(t *testing.T) {
		_, err := parseCandidate(textResponse("a croissant with coffee"), nil)

		assert.ErrorIs(t, err, recognition.ErrInvalidResponse)
	})
}

func TestToResult(t *testing.T) {
	t.Parallel()

	t.Run("maps the full schema to a result", func(t *testing.T) {
		result, err := toResult(&responseSchema{
			Name: "Café",
			Icon: "🥐",
			Foods: []foodSchema{
				{Name: "coffee", Quantity: "1 cup"},
				{Name: "croissant", Quantity: "1"},
			},
		})

		require.NoError(t, err)
		assert.Equal(t, "Café", result.Name)
		assert.Equal(t, "🥐", result.Icon)
		assert.Equal(t, []domain.Food{
			{Name: "coffee", Quantity: "1 cup"},
			{Name: "croissant", Quantity: "1"},
		}, result.Foods)
	})

	t.Run("missing name is invalid", func(t *testing.T) {
		_, err := toResult(&responseSchema{Icon: "🥐"})

		assert.ErrorIs(t, err, recognition.ErrInvalidResponse)
	})

	t.Run("missing icon is invalid", func(t *testing.T) {
		_, err := toResult(&responseSchema{Name: "Café"})

		assert.ErrorIs(t, err, recognition.ErrInvalidResponse)
	})

	t.Run("food without a name is invalid", func(t *testing.T) {
		_, err := toResult(&responseSchema{
			Name:  "Café",
			Icon:  "🥐",
			Foods: []foodSchema{{Quantity: "1 cup"}},
		})

		assert.ErrorIs(t, err, recognition.ErrInvalidResponse)
	})

	t.Run("empty food list yields an empty slice", func(t *testing.T) {
		result, err := toResult(&responseSchema{Name: "Water", Icon: "💧"})

		require.NoError(t, err)
		assert.Empty(t, result.Foods)
		assert.NotNil(t, result.Foods)
	})
}
