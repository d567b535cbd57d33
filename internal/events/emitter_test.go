package events

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	events []*TaskRequestEvent
	err    error
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event *TaskRequestEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func TestNewTaskRequestEvent(t *testing.T) {
	t.Parallel()

	event, err := NewTaskRequestEvent("meal_processing", map[string]string{"file_key": "uploads/k1.m4a"})

	require.NoError(t, err)
	assert.Equal(t, "meal_processing", event.Type)
	assert.False(t, event.CreatedAt.IsZero())

	var payload struct {
		FileKey string `json:"file_key"`
	}
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, "uploads/k1.m4a", payload.FileKey)
}

func TestInMemoryEventEmitter(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	t.Run("delivers events to all handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		first := &recordingHandler{}
		second := &recordingHandler{}
		emitter.RegisterHandler(first)
		emitter.RegisterHandler(second)

		event, err := NewTaskRequestEvent("meal_processing", map[string]string{"file_key": "uploads/k1.m4a"})
		require.NoError(t, err)

		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.Len(t, first.events, 1)
		assert.Len(t, second.events, 1)
	})

	t.Run("no handlers is not an error", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)

		event, err := NewTaskRequestEvent("meal_processing", nil)
		require.NoError(t, err)

		assert.NoError(t, emitter.EmitEvent(context.Background(), event))
	})

	t.Run("handler failure does not stop delivery", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		failErr := errors.New("handler broke")
		failing := &recordingHandler{err: failErr}
		healthy := &recordingHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(healthy)

		event, err := NewTaskRequestEvent("meal_processing", nil)
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		assert.ErrorIs(t, err, failErr)
		assert.Len(t, healthy.events, 1)
	})
}
