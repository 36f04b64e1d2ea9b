package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/visionsmith/argus-api/internal/domain"
)

// ClassificationStore defines the interface for classification record
// persistence. The store holds audit records only; queued work never
// survives a restart through it.
type ClassificationStore interface {
	// Create saves a new classification to the store.
	// It handles domain validation internally.
	Create(ctx context.Context, c *domain.Classification) error

	// GetByID retrieves a classification by its unique ID.
	// Returns ErrClassificationNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Classification, error)

	// UpdateStatus updates the status of an existing classification.
	// Returns ErrClassificationNotFound if it does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ClassificationStatus) error

	// UpdateResult records the terminal outcome of a classification:
	// labels and model on success, a failure reason otherwise.
	// Returns ErrClassificationNotFound if it does not exist.
	UpdateResult(ctx context.Context, id uuid.UUID, status domain.ClassificationStatus,
		labels []domain.Label, model, failedFor string) error

	// MarkInterrupted fails every pending or processing record older
	// than the cutoff. Run at startup so records stranded by a previous
	// crash are not reported as still in flight; they are never
	// re-enqueued. Returns the number of records marked.
	MarkInterrupted(ctx context.Context, olderThan time.Time) (int64, error)

	// WithTx returns a new ClassificationStore instance that uses the
	// provided transaction. The transaction is created and managed by
	// the caller (typically a service).
	WithTx(tx *sql.Tx) ClassificationStore
}
