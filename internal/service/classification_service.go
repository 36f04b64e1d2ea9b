// Package service provides application-level services for managing
// classification requests.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/visionsmith/argus-api/internal/domain"
	"github.com/visionsmith/argus-api/internal/events"
	"github.com/visionsmith/argus-api/internal/scheduler"
	"github.com/visionsmith/argus-api/internal/store"
	"github.com/visionsmith/argus-api/internal/task"
)

// ClassificationRepository defines the repository interface for the
// service layer, aligned with store.ClassificationStore.
type ClassificationRepository interface {
	// Create saves a new classification to the store
	Create(ctx context.Context, c *domain.Classification) error

	// GetByID retrieves a classification by its unique ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Classification, error)

	// WithTx returns a new repository instance that uses the provided transaction
	WithTx(tx *sql.Tx) ClassificationRepository

	// DB returns the underlying database connection
	DB() *sql.DB
}

// OperationBuilder builds the scheduler operation for a classification
// record. The task processor satisfies it.
type OperationBuilder interface {
	Operation(id uuid.UUID, imageURL string) scheduler.Operation[[]domain.Label]
}

// Submitter is the slice of the scheduler the sync path needs.
type Submitter interface {
	Submit(op scheduler.Operation[[]domain.Label], opts scheduler.Options) *scheduler.Future[[]domain.Label]
}

// ClassificationService provides classification-related operations.
type ClassificationService interface {
	// ClassifySync creates a record, runs it through the scheduler, and
	// waits for the result within the caller's context.
	ClassifySync(ctx context.Context, req ClassifyRequest) (*domain.Classification, error)

	// CreateAndEnqueue creates a pending record and emits a
	// classification-requested event for asynchronous processing.
	CreateAndEnqueue(ctx context.Context, req ClassifyRequest) (*domain.Classification, error)

	// GetClassification retrieves a classification by its ID.
	GetClassification(ctx context.Context, id uuid.UUID) (*domain.Classification, error)
}

// ClassifyRequest carries the caller's classification parameters.
type ClassifyRequest struct {
	ImageURL string
	Priority int

	// Timeout bounds the operation's execution. Zero means the
	// scheduler's default.
	Timeout time.Duration
}

// Common sentinel errors for ClassificationService.
var (
	// ErrClassificationNotFound indicates that the classification does not exist
	ErrClassificationNotFound = errors.New("classification not found")
)

// ClassificationServiceError wraps errors from the service with context.
type ClassificationServiceError struct {
	// Operation is the operation that failed (e.g., "classify_sync")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ClassificationServiceError.
func (e *ClassificationServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classification service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("classification service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ClassificationServiceError) Unwrap() error {
	return e.Err
}

// NewClassificationServiceError creates a new ClassificationServiceError.
// It returns known sentinel errors directly without wrapping.
func NewClassificationServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrClassificationNotFound) {
		return ErrClassificationNotFound
	}
	if errors.Is(err, store.ErrClassificationNotFound) {
		return ErrClassificationNotFound
	}

	return &ClassificationServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// classificationServiceImpl implements the ClassificationService interface.
type classificationServiceImpl struct {
	repo         ClassificationRepository
	processor    OperationBuilder
	submitter    Submitter
	eventEmitter events.EventEmitter
	logger       *slog.Logger
}

// NewClassificationService creates a new ClassificationService.
// It returns an error if any of the required dependencies are nil.
func NewClassificationService(
	repo ClassificationRepository,
	processor OperationBuilder,
	submitter Submitter,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
) (ClassificationService, error) {
	if repo == nil {
		return nil, &ClassificationServiceError{
			Operation: "create_service",
			Message:   "repo cannot be nil",
		}
	}
	if processor == nil {
		return nil, &ClassificationServiceError{
			Operation: "create_service",
			Message:   "processor cannot be nil",
		}
	}
	if submitter == nil {
		return nil, &ClassificationServiceError{
			Operation: "create_service",
			Message:   "submitter cannot be nil",
		}
	}
	if eventEmitter == nil {
		return nil, &ClassificationServiceError{
			Operation: "create_service",
			Message:   "eventEmitter cannot be nil",
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &classificationServiceImpl{
		repo:         repo,
		processor:    processor,
		submitter:    submitter,
		eventEmitter: eventEmitter,
		logger:       logger.With("component", "classification_service"),
	}, nil
}

// ClassifySync creates a record, submits its operation, and waits for
// the future within the request context. The record's terminal state is
// persisted by the operation itself; the reload at the end returns the
// stored outcome to the caller.
func (s *classificationServiceImpl) ClassifySync(
	ctx context.Context,
	req ClassifyRequest,
) (*domain.Classification, error) {
	c, err := s.createRecord(ctx, req)
	if err != nil {
		return nil, err
	}

	op := s.processor.Operation(c.ID, c.ImageURL)
	fut := s.submitter.Submit(op, scheduler.Options{
		Priority: req.Priority,
		Timeout:  req.Timeout,
	})

	labels, err := fut.Wait(ctx)
	if err != nil {
		// Scheduler sentinels (timeout, cleared) pass through so the
		// API layer can map them; a cancelled wait surfaces as-is too.
		s.logger.Warn("synchronous classification failed",
			"error", err,
			"classification_id", c.ID)
		return nil, err
	}

	// The operation already persisted the result; reflect it without
	// another round trip.
	c.Labels = labels
	c.Status = domain.ClassificationStatusCompleted

	s.logger.Info("synchronous classification completed",
		"classification_id", c.ID,
		"label_count", len(labels))
	return c, nil
}

// CreateAndEnqueue creates a pending record and emits the
// classification-requested event that the task event handler turns into
// a scheduler submission.
func (s *classificationServiceImpl) CreateAndEnqueue(
	ctx context.Context,
	req ClassifyRequest,
) (*domain.Classification, error) {
	c, err := s.createRecord(ctx, req)
	if err != nil {
		return nil, err
	}

	payload := task.ClassificationRequestedPayload{
		ClassificationID: c.ID,
		ImageURL:         c.ImageURL,
		Priority:         req.Priority,
		TimeoutMs:        int(req.Timeout / time.Millisecond),
	}

	event, err := events.NewTaskRequestEvent(task.TaskTypeClassification, payload)
	if err != nil {
		s.logger.Error("failed to create classification event",
			"error", err,
			"classification_id", c.ID)
		return nil, NewClassificationServiceError("create_and_enqueue", "failed to create event", err)
	}

	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit classification event",
			"error", err,
			"classification_id", c.ID,
			"event_id", event.ID)
		return nil, NewClassificationServiceError("create_and_enqueue", "failed to emit event", err)
	}

	s.logger.Info("classification enqueued",
		"classification_id", c.ID,
		"priority", req.Priority,
		"event_id", event.ID)
	return c, nil
}

// GetClassification retrieves a classification by its ID.
func (s *classificationServiceImpl) GetClassification(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Classification, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrClassificationNotFound) {
			return nil, ErrClassificationNotFound
		}
		s.logger.Error("failed to retrieve classification",
			"error", err,
			"classification_id", id)
		return nil, NewClassificationServiceError("get_classification", "failed to retrieve classification", err)
	}

	return c, nil
}

// createRecord validates the request into a domain object and persists
// it inside a transaction.
func (s *classificationServiceImpl) createRecord(
	ctx context.Context,
	req ClassifyRequest,
) (*domain.Classification, error) {
	c, err := domain.NewClassification(req.ImageURL, req.Priority)
	if err != nil {
		s.logger.Warn("rejected classification request",
			"error", err,
			"image_url", req.ImageURL)
		return nil, NewClassificationServiceError("create_record", "invalid classification request", err)
	}

	err = store.RunInTransaction(ctx, s.repo.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(ctx, c); err != nil {
			return NewClassificationServiceError("create_record", "failed to save classification", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("classification record created",
		"classification_id", c.ID,
		"priority", c.Priority)
	return c, nil
}
