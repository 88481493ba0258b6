package testutils

import (
	"sync"

	"github.com/stretchr/testify/mock"
)

// PublishedMessage is one call recorded by MockProducer.
type PublishedMessage struct {
	Subject string
	Data    []byte
}

// MockProducer mocks broker.Producer and records what was published.
type MockProducer struct {
	mock.Mock

	mu        sync.Mutex
	published []PublishedMessage
}

func (m *MockProducer) Publish(subject string, data []byte) error {
	args := m.Called(subject, data)
	if args.Error(0) == nil {
		m.mu.Lock()
		m.published = append(m.published, PublishedMessage{Subject: subject, Data: data})
		m.mu.Unlock()
	}
	return args.Error(0)
}

func (m *MockProducer) Close() {
	m.Called()
}

func (m *MockProducer) Published() []PublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedMessage(nil), m.published...)
}
