package hub

import (
	"context"
	"sync"

	"apnsd/apns"
)

// MockPusher implements Pusher for testing. FailWith maps device tokens
// to the error their sends should produce.
type MockPusher struct {
	mu       sync.Mutex
	Sent     []*apns.Notification
	FailWith map[string]error
}

func NewMockPusher() *MockPusher {
	return &MockPusher{FailWith: map[string]error{}}
}

func (m *MockPusher) Send(ctx context.Context, n *apns.Notification) (*apns.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, n)
	if err, ok := m.FailWith[n.DeviceToken]; ok {
		return nil, err
	}
	return n, nil
}

func (m *MockPusher) SendMany(ctx context.Context, ns []*apns.Notification) []apns.Result {
	results := make([]apns.Result, len(ns))
	for i, n := range ns {
		sent, err := m.Send(ctx, n)
		if err != nil {
			results[i] = apns.Result{Err: err}
			continue
		}
		results[i] = apns.Result{Notification: sent}
	}
	return results
}

func (m *MockPusher) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
