// Package classifier defines the boundary between the scheduling core
// and the machine-learning model adapters that label images.
package classifier

import "context"

// Image is a fetched, decodable image ready for classification.
type Image struct {
	// Data is the raw encoded image bytes.
	Data []byte

	// MIMEType is the content type the image was served with,
	// e.g. "image/jpeg".
	MIMEType string

	// SourceURL is where the image was fetched from, for logging only.
	SourceURL string
}

// Label is one model-assigned label with its confidence in [0, 1].
type Label struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Options tunes a single classification call.
type Options struct {
	// MaxLabels caps how many labels the model may return. Zero means
	// the adapter's configured maximum.
	MaxLabels int
}

// Classifier labels images by delegating to an external model.
// Implementations may retry transient upstream failures internally;
// a returned error is final for this call.
type Classifier interface {
	// Classify labels the image. The returned labels are validated:
	// non-empty names, confidences clamped to [0, 1], count capped.
	Classify(ctx context.Context, img Image, opts Options) ([]Label, error)

	// ModelName identifies the underlying model, recorded alongside
	// results for audit.
	ModelName() string
}
