package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/visionsmith/argus-api/internal/domain"
	"github.com/visionsmith/argus-api/internal/platform/logger"
	"github.com/visionsmith/argus-api/internal/store"
)

// PostgresClassificationStore implements the store.ClassificationStore
// interface using a PostgreSQL database as the storage backend.
type PostgresClassificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresClassificationStore creates a new PostgreSQL implementation of
// the ClassificationStore interface. It accepts a database connection or
// transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresClassificationStore(db store.DBTX, logger *slog.Logger) *PostgresClassificationStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresClassificationStore{
		db:     db,
		logger: logger.With(slog.String("component", "classification_store")),
	}
}

// Ensure PostgresClassificationStore implements store.ClassificationStore
var _ store.ClassificationStore = (*PostgresClassificationStore)(nil)

// Create implements store.ClassificationStore.Create
// It saves a new classification record, handling domain validation.
func (s *PostgresClassificationStore) Create(ctx context.Context, c *domain.Classification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := c.Validate(); err != nil {
		log.Warn("classification validation failed during create",
			slog.String("error", err.Error()),
			slog.String("classification_id", c.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	labels, err := marshalLabels(c.Labels)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO classifications (id, image_url, priority, status, labels, model, failed_for, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		c.ID,
		c.ImageURL,
		c.Priority,
		c.Status,
		labels,
		c.Model,
		c.FailedFor,
		c.CreatedAt,
		c.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to create classification",
			slog.String("error", err.Error()),
			slog.String("classification_id", c.ID.String()))
		return MapError(err)
	}

	log.Info("classification created",
		slog.String("classification_id", c.ID.String()),
		slog.String("status", string(c.Status)))
	return nil
}

// GetByID implements store.ClassificationStore.GetByID
// It retrieves a classification by its unique ID.
// Returns store.ErrClassificationNotFound if the record does not exist.
func (s *PostgresClassificationStore) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Classification, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, image_url, priority, status, labels, model, failed_for, created_at, updated_at
		FROM classifications
		WHERE id = $1
	`

	var c domain.Classification
	var status string
	var labels []byte

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.ImageURL,
		&c.Priority,
		&status,
		&labels,
		&c.Model,
		&c.FailedFor,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("classification not found", slog.String("classification_id", id.String()))
			return nil, store.ErrClassificationNotFound
		}
		log.Error("failed to get classification by ID",
			slog.String("error", err.Error()),
			slog.String("classification_id", id.String()))
		return nil, MapError(err)
	}

	c.Status = domain.ClassificationStatus(status)
	if c.Labels, err = unmarshalLabels(labels); err != nil {
		log.Error("failed to decode stored labels",
			slog.String("error", err.Error()),
			slog.String("classification_id", id.String()))
		return nil, err
	}

	return &c, nil
}

// UpdateStatus implements store.ClassificationStore.UpdateStatus
// It updates the status of an existing classification.
// Returns store.ErrClassificationNotFound if the record does not exist.
func (s *PostgresClassificationStore) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.ClassificationStatus,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE classifications
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update classification status",
			slog.String("error", err.Error()),
			slog.String("classification_id", id.String()),
			slog.String("status", string(status)))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "classification"); err != nil {
		return store.ErrClassificationNotFound
	}

	log.Debug("classification status updated",
		slog.String("classification_id", id.String()),
		slog.String("status", string(status)))
	return nil
}

// UpdateResult implements store.ClassificationStore.UpdateResult
// It records the terminal outcome of a classification in one statement.
// Returns store.ErrClassificationNotFound if the record does not exist.
func (s *PostgresClassificationStore) UpdateResult(
	ctx context.Context,
	id uuid.UUID,
	status domain.ClassificationStatus,
	labels []domain.Label,
	model, failedFor string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	encoded, err := marshalLabels(labels)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE classifications
		SET status = $1, labels = $2, model = $3, failed_for = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := s.db.ExecContext(ctx, query, status, encoded, model, failedFor, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update classification result",
			slog.String("error", err.Error()),
			slog.String("classification_id", id.String()),
			slog.String("status", string(status)))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "classification"); err != nil {
		return store.ErrClassificationNotFound
	}

	log.Info("classification result recorded",
		slog.String("classification_id", id.String()),
		slog.String("status", string(status)),
		slog.Int("label_count", len(labels)))
	return nil
}

// MarkInterrupted implements store.ClassificationStore.MarkInterrupted
// It fails every pending or processing record older than the cutoff.
// Stranded records are only marked; they are never re-enqueued.
func (s *PostgresClassificationStore) MarkInterrupted(
	ctx context.Context,
	olderThan time.Time,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE classifications
		SET status = $1, failed_for = $2, updated_at = $3
		WHERE status IN ($4, $5) AND created_at < $6
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		domain.ClassificationStatusFailed,
		"interrupted by restart",
		time.Now().UTC(),
		domain.ClassificationStatusPending,
		domain.ClassificationStatusProcessing,
		olderThan,
	)
	if err != nil {
		log.Error("failed to mark interrupted classifications",
			slog.String("error", err.Error()))
		return 0, MapError(err)
	}

	marked, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if marked > 0 {
		log.Warn("marked stranded classifications as interrupted",
			slog.Int64("count", marked))
	}
	return marked, nil
}

// WithTx implements store.ClassificationStore.WithTx
// It returns a new store instance bound to the given transaction.
func (s *PostgresClassificationStore) WithTx(tx *sql.Tx) store.ClassificationStore {
	return &PostgresClassificationStore{
		db:     tx,
		logger: s.logger,
	}
}

// marshalLabels encodes labels as JSON for the jsonb column. A nil
// slice encodes as an empty array so the column stays non-null.
func marshalLabels(labels []domain.Label) ([]byte, error) {
	if labels == nil {
		labels = []domain.Label{}
	}
	return json.Marshal(labels)
}

func unmarshalLabels(data []byte) ([]domain.Label, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var labels []domain.Label
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("failed to decode labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, nil
	}
	return labels, nil
}
