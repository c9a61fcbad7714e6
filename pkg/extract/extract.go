// Package extract converts uploaded file bytes into plain text. Each
// supported file type has its own Extractor implementation; the Registry
// selects one by the caller's declared type, so adding a format never
// touches ingestion logic.
package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedType is returned when no extractor is registered for the
	// declared file type.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrNoText is returned when extraction produced no usable text
	// (for example a corrupt or image-only PDF).
	ErrNoText = errors.New("no text could be extracted")
)

// Extractor converts raw file bytes of a single declared type into plain text.
type Extractor interface {
	// Type returns the declared file type this extractor handles (e.g. "pdf").
	Type() string

	// Extract converts the file bytes to plain text.
	Extract(data []byte) (string, error)
}

// Registry dispatches extraction on the declared file type.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates a registry with the given extractors.
func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{extractors: make(map[string]Extractor, len(extractors))}
	for _, e := range extractors {
		r.extractors[e.Type()] = e
	}
	return r
}

// DefaultRegistry returns a registry with the built-in txt and pdf extractors.
func DefaultRegistry() *Registry {
	return NewRegistry(NewPlaintext(), NewPDF())
}

// Supported reports whether the declared type has a registered extractor.
func (r *Registry) Supported(fileType string) bool {
	_, ok := r.extractors[fileType]
	return ok
}

// Extract dispatches to the extractor for the declared type.
func (r *Registry) Extract(fileType string, data []byte) (string, error) {
	e, ok := r.extractors[fileType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, fileType)
	}

	return e.Extract(data)
}
