package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler counts deliveries and can fail on demand.
type recordingHandler struct {
	lastEvent *TaskRequestEvent
	err       error
	calls     int
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *TaskRequestEvent) error {
	h.lastEvent = event
	h.calls++
	return h.err
}

func TestNewTaskRequestEvent(t *testing.T) {
	t.Parallel()

	type requestPayload struct {
		ClassificationID uuid.UUID `json:"classification_id"`
		ImageURL         string    `json:"image_url"`
	}

	payload := requestPayload{
		ClassificationID: uuid.New(),
		ImageURL:         "https://img.example.com/cat.jpg",
	}

	event, err := NewTaskRequestEvent("classification_requested", payload)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, "classification_requested", event.Type)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	var decoded requestPayload
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	assert.Equal(t, payload, decoded)

	var viaHelper requestPayload
	require.NoError(t, event.UnmarshalPayload(&viaHelper))
	assert.Equal(t, payload, viaHelper)
}

func TestNewTaskRequestEventUnserializablePayload(t *testing.T) {
	t.Parallel()

	_, err := NewTaskRequestEvent("bad", func() {})
	assert.Error(t, err)
}

func TestInMemoryEventEmitter(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	newEvent := func(t *testing.T) *TaskRequestEvent {
		t.Helper()
		event, err := NewTaskRequestEvent("classification_requested", map[string]string{"k": "v"})
		require.NoError(t, err)
		return event
	}

	t.Run("no handlers is not an error", func(t *testing.T) {
		t.Parallel()

		emitter := NewInMemoryEventEmitter(logger)
		assert.NoError(t, emitter.EmitEvent(context.Background(), newEvent(t)))
	})

	t.Run("all handlers receive the event", func(t *testing.T) {
		t.Parallel()

		emitter := NewInMemoryEventEmitter(logger)
		first := &recordingHandler{}
		second := &recordingHandler{}
		emitter.RegisterHandler(first)
		emitter.RegisterHandler(second)

		event := newEvent(t)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))

		assert.Equal(t, 1, first.calls)
		assert.Equal(t, 1, second.calls)
		assert.Equal(t, event, first.lastEvent)
		assert.Equal(t, event, second.lastEvent)
	})

	t.Run("failing handler does not stop delivery", func(t *testing.T) {
		t.Parallel()

		emitter := NewInMemoryEventEmitter(logger)
		handlerErr := errors.New("handler error")
		failing := &recordingHandler{err: handlerErr}
		healthy := &recordingHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(healthy)

		err := emitter.EmitEvent(context.Background(), newEvent(t))
		assert.ErrorIs(t, err, handlerErr)
		assert.Equal(t, 1, failing.calls)
		assert.Equal(t, 1, healthy.calls)
	})
}
