package testutils

import (
	"context"

	"github.com/askdocco/askdoc/pkg/llm"
)

// MockChatClient is a test chat client with scriptable responses
type MockChatClient struct {
	// Response is returned from Complete when no errors are queued
	Response string

	// Errs is consumed one per call before Response is returned, so a
	// test can script "fail twice, then succeed"
	Errs []error

	// Requests records every request Complete received, in order
	Requests []llm.Request
}

func NewMockChatClient(response string) *MockChatClient {
	return &MockChatClient{
		Response: response,
	}
}

func (m *MockChatClient) Complete(_ context.Context, req llm.Request) (string, error) {
	m.Requests = append(m.Requests, req)

	if len(m.Errs) > 0 {
		err := m.Errs[0]
		m.Errs = m.Errs[1:]
		if err != nil {
			return "", err
		}
	}

	return m.Response, nil
}

func (m *MockChatClient) Close() error {
	return nil
}
