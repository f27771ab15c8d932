package order

import (
	"context"
	"errors"
)

// MockEnqueuer implements tasks.ChainEnqueuer.
type MockEnqueuer struct {
	Err      error
	Enqueued []string
	Emails   []string
}

func (m *MockEnqueuer) EnqueueOrderChain(_ context.Context, orderID, recipientEmail string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Enqueued = append(m.Enqueued, orderID)
	m.Emails = append(m.Emails, recipientEmail)
	return nil
}

var errQueueDown = errors.New("redis: connection refused")
