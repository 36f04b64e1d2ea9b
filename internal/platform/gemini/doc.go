// Package gemini provides an implementation of the classifier.Classifier
// interface that uses Google's Gemini API for labeling images.
//
// This package is an infrastructure adapter: it translates between the
// application's domain models and the Gemini API without exposing the
// external service's details to the core application. The prompt is
// rendered from a template (embedded by default, overridable from disk),
// the image travels inline as a blob part, and the model is asked for a
// structured JSON response which is parsed and validated into domain
// labels. Transient API failures are retried with exponential backoff;
// safety blocks and malformed responses surface as permanent
// classifier errors.
package gemini
