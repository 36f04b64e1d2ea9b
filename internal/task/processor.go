package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/visionsmith/argus-api/internal/classifier"
	"github.com/visionsmith/argus-api/internal/domain"
	"github.com/visionsmith/argus-api/internal/platform/rediscache"
	"github.com/visionsmith/argus-api/internal/scheduler"
)

// TaskTypeClassification identifies classification-requested events.
const TaskTypeClassification = "image_classification"

// recordUpdateTimeout bounds the bookkeeping writes that run after an
// operation's own context is already cancelled.
const recordUpdateTimeout = 5 * time.Second

// Common errors
var (
	ErrNilRecords    = errors.New("record store cannot be nil")
	ErrNilFetcher    = errors.New("fetcher cannot be nil")
	ErrNilClassifier = errors.New("classifier cannot be nil")
	ErrNilCache      = errors.New("cache cannot be nil")
)

// RecordStore is the slice of the classification store the processor
// needs to move a record through its lifecycle.
type RecordStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Classification, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ClassificationStatus) error
	UpdateResult(ctx context.Context, id uuid.UUID, status domain.ClassificationStatus,
		labels []domain.Label, model, failedFor string) error
}

// ImageFetcher downloads a remote image ready for classification.
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) (classifier.Image, error)
}

// ResultCache stores classification results keyed by model and URL.
// The Redis cache and its no-op stand-in both satisfy it.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]domain.Label, bool, error)
	Set(ctx context.Context, key string, labels []domain.Label) error
}

// Processor turns a classification record into a scheduler operation
// that runs the full pipeline: mark processing, consult the cache,
// fetch, classify, persist the outcome.
type Processor struct {
	records    RecordStore
	fetcher    ImageFetcher
	classifier classifier.Classifier
	cache      ResultCache
	maxLabels  int
	logger     *slog.Logger
}

// NewProcessor creates a Processor.
// It returns an error if any of the required dependencies are nil.
func NewProcessor(
	records RecordStore,
	fetcher ImageFetcher,
	cls classifier.Classifier,
	cache ResultCache,
	maxLabels int,
	logger *slog.Logger,
) (*Processor, error) {
	if records == nil {
		return nil, ErrNilRecords
	}
	if fetcher == nil {
		return nil, ErrNilFetcher
	}
	if cls == nil {
		return nil, ErrNilClassifier
	}
	if cache == nil {
		return nil, ErrNilCache
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Processor{
		records:    records,
		fetcher:    fetcher,
		classifier: cls,
		cache:      cache,
		maxLabels:  maxLabels,
		logger:     logger.With("component", "classification_processor"),
	}, nil
}

// Operation builds the scheduler operation for one classification
// record. The operation's context carries the task's deadline; a
// timeout cancels the fetch and the model call mid-flight, and the
// record is then marked failed by the settled error path the next time
// it is observed -- the operation itself marks the record failed for
// every error it sees before the scheduler discards the result.
func (p *Processor) Operation(id uuid.UUID, imageURL string) scheduler.Operation[[]domain.Label] {
	return func(ctx context.Context) ([]domain.Label, error) {
		labels, err := p.process(ctx, id, imageURL)
		if err != nil {
			// Best effort: the record keeps the reason even when the
			// scheduler has already timed the task out.
			p.failRecord(id, err)
			return nil, err
		}
		return labels, nil
	}
}

func (p *Processor) process(ctx context.Context, id uuid.UUID, imageURL string) ([]domain.Label, error) {
	log := p.logger.With("classification_id", id)

	if err := p.records.UpdateStatus(ctx, id, domain.ClassificationStatusProcessing); err != nil {
		return nil, fmt.Errorf("failed to mark classification processing: %w", err)
	}

	model := p.classifier.ModelName()
	cacheKey := rediscache.Key(model, imageURL)

	if labels, hit, err := p.cache.Get(ctx, cacheKey); err != nil {
		log.Warn("cache lookup failed, treating as miss", "error", err)
	} else if hit {
		log.Info("classification served from cache", "label_count", len(labels))
		if err := p.records.UpdateResult(ctx, id, domain.ClassificationStatusCompleted,
			labels, model, ""); err != nil {
			return nil, fmt.Errorf("failed to record cached result: %w", err)
		}
		return labels, nil
	}

	img, err := p.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}

	clsLabels, err := p.classifier.Classify(ctx, img, classifier.Options{MaxLabels: p.maxLabels})
	if err != nil {
		return nil, fmt.Errorf("failed to classify image: %w", err)
	}

	labels := toDomainLabels(clsLabels)

	if err := p.cache.Set(ctx, cacheKey, labels); err != nil {
		log.Warn("failed to cache classification result", "error", err)
	}

	if err := p.records.UpdateResult(ctx, id, domain.ClassificationStatusCompleted,
		labels, model, ""); err != nil {
		return nil, fmt.Errorf("failed to record result: %w", err)
	}

	log.Info("classification completed", "label_count", len(labels), "model", model)
	return labels, nil
}

// failRecord marks the record failed with the error as the reason. It
// runs on a fresh context because the operation's context may already
// be cancelled by the timeout supervisor.
func (p *Processor) failRecord(id uuid.UUID, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), recordUpdateTimeout)
	defer cancel()

	if err := p.records.UpdateResult(ctx, id, domain.ClassificationStatusFailed,
		nil, p.classifier.ModelName(), cause.Error()); err != nil {
		p.logger.Error("failed to mark classification failed",
			"classification_id", id,
			"cause", cause,
			"error", err)
	}
}

func toDomainLabels(in []classifier.Label) []domain.Label {
	out := make([]domain.Label, len(in))
	for i, l := range in {
		out[i] = domain.Label{Name: l.Name, Confidence: l.Confidence}
	}
	return out
}
