package testutils

import (
	"context"

	"github.com/askdocco/askdoc/pkg/eventstream"
)

// MockPublisher is a test eventstream publisher that records events
type MockPublisher struct {
	Events []*eventstream.DocumentEvent

	// Err forces PublishDocument to fail
	Err error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishDocument(_ context.Context, event *eventstream.DocumentEvent) error {
	if event == nil {
		return eventstream.ErrNilDocumentEvent
	}
	if m.Err != nil {
		return m.Err
	}

	m.Events = append(m.Events, event)
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}
