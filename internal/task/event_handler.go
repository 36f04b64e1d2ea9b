package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/visionsmith/argus-api/internal/domain"
	"github.com/visionsmith/argus-api/internal/events"
	"github.com/visionsmith/argus-api/internal/scheduler"
)

// ClassificationRequestedPayload is the event payload carried by
// classification-requested events.
type ClassificationRequestedPayload struct {
	ClassificationID uuid.UUID `json:"classification_id"`
	ImageURL         string    `json:"image_url"`
	Priority         int       `json:"priority"`
	TimeoutMs        int       `json:"timeout_ms,omitempty"`
}

// Submitter is the slice of the scheduler the event handler needs.
type Submitter interface {
	Submit(op scheduler.Operation[[]domain.Label], opts scheduler.Options) *scheduler.Future[[]domain.Label]
}

// ClassificationEventHandler implements the events.EventHandler
// interface: it turns classification-requested events into scheduler
// submissions. The future is dropped because the async path delivers
// results through the record store, not a waiting caller.
type ClassificationEventHandler struct {
	processor *Processor
	submitter Submitter
	logger    *slog.Logger
}

// NewClassificationEventHandler creates an event handler that builds
// operations with the given processor and submits them to the scheduler.
func NewClassificationEventHandler(
	processor *Processor,
	submitter Submitter,
	logger *slog.Logger,
) (*ClassificationEventHandler, error) {
	if processor == nil {
		return nil, fmt.Errorf("processor cannot be nil")
	}
	if submitter == nil {
		return nil, fmt.Errorf("submitter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ClassificationEventHandler{
		processor: processor,
		submitter: submitter,
		logger:    logger.With("component", "classification_event_handler"),
	}, nil
}

// HandleEvent processes classification-requested events by submitting
// the record's operation to the scheduler. Events of other types are
// ignored.
func (h *ClassificationEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	if event.Type != TaskTypeClassification {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload ClassificationRequestedPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if payload.ClassificationID == uuid.Nil {
		return fmt.Errorf("event %s carries no classification ID", event.ID)
	}

	op := h.processor.Operation(payload.ClassificationID, payload.ImageURL)
	h.submitter.Submit(op, scheduler.Options{
		Priority: payload.Priority,
		Timeout:  time.Duration(payload.TimeoutMs) * time.Millisecond,
	})

	h.logger.Info("classification submitted to scheduler",
		"classification_id", payload.ClassificationID,
		"priority", payload.Priority,
		"event_id", event.ID)
	return nil
}

// Ensure ClassificationEventHandler implements events.EventHandler
var _ events.EventHandler = (*ClassificationEventHandler)(nil)
