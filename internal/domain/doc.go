// Package domain holds the classification entity, its label results,
// and the status lifecycle rules. It has no dependencies on transport,
// storage, or the model adapters.
package domain
