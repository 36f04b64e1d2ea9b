package domain

import (
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// ClassificationStatus represents the processing state of a classification.
type ClassificationStatus string

// Possible classification status values.
const (
	ClassificationStatusPending    ClassificationStatus = "pending"
	ClassificationStatusProcessing ClassificationStatus = "processing"
	ClassificationStatusCompleted  ClassificationStatus = "completed"
	ClassificationStatusFailed     ClassificationStatus = "failed"
)

// Common validation errors for Classification.
var (
	ErrEmptyClassificationID      = errors.New("classification ID cannot be empty")
	ErrEmptyImageURL              = errors.New("classification image URL cannot be empty")
	ErrInvalidImageURL            = errors.New("classification image URL must be absolute http or https")
	ErrInvalidClassificationState = errors.New("invalid classification status")
)

// Label is one model-assigned label with its confidence in [0, 1].
type Label struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Classification represents one request to label a remote image. It
// tracks the source URL, the scheduling parameters the caller asked
// for, the processing state, and the eventual labels or failure reason.
type Classification struct {
	ID        uuid.UUID            `json:"id"`
	ImageURL  string               `json:"image_url"`
	Priority  int                  `json:"priority"`
	Status    ClassificationStatus `json:"status"`
	Labels    []Label              `json:"labels,omitempty"`
	Model     string               `json:"model,omitempty"`
	FailedFor string               `json:"failed_for,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NewClassification creates a pending Classification for the given
// image URL and priority. It generates a new UUID and sets the
// creation/update timestamps. Returns an error if validation fails.
func NewClassification(imageURL string, priority int) (*Classification, error) {
	c := &Classification{
		ID:        uuid.New(),
		ImageURL:  imageURL,
		Priority:  priority,
		Status:    ClassificationStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks if the Classification has valid data.
// Returns an error if any field fails validation.
func (c *Classification) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyClassificationID
	}

	if c.ImageURL == "" {
		return ErrEmptyImageURL
	}

	u, err := url.Parse(c.ImageURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidImageURL
	}

	if !isValidClassificationStatus(c.Status) {
		return ErrInvalidClassificationState
	}

	return nil
}

// UpdateStatus updates the classification's status and bumps the
// UpdatedAt timestamp. Returns an error if the new status is invalid.
func (c *Classification) UpdateStatus(status ClassificationStatus) error {
	if !isValidClassificationStatus(status) {
		return ErrInvalidClassificationState
	}

	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// isValidClassificationStatus checks if the given status is a valid
// ClassificationStatus.
func isValidClassificationStatus(status ClassificationStatus) bool {
	switch status {
	case ClassificationStatusPending, ClassificationStatusProcessing,
		ClassificationStatusCompleted, ClassificationStatusFailed:
		return true
	default:
		return false
	}
}
