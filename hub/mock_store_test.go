package hub

import (
	"fmt"
	"sync"
	"time"

	"apnsd/store"
)

// MockStore implements store.Store in memory for testing
type MockStore struct {
	mu         sync.Mutex
	devices    map[string]store.Device
	deliveries map[int64]*store.Delivery
	users      map[string]store.User
	nextID     int64
}

func NewMockStore() *MockStore {
	return &MockStore{
		devices:    map[string]store.Device{},
		deliveries: map[int64]*store.Delivery{},
		users:      map[string]store.User{},
	}
}

func (m *MockStore) RegisterDevice(token, name, topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[token] = store.Device{Token: token, Name: name, Topic: topic, Active: true, CreatedAt: time.Now()}
	return nil
}

func (m *MockStore) RemoveDevice(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.devices, token)
	return nil
}

func (m *MockStore) DeactivateDevice(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[token]
	if !ok {
		return fmt.Errorf("device not found: %s", token)
	}
	d.Active = false
	m.devices[token] = d
	return nil
}

func (m *MockStore) GetDevice(token string) (*store.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[token]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *MockStore) ListDevices(activeOnly bool) ([]store.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Device
	for _, d := range m.devices {
		if activeOnly && !d.Active {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *MockStore) RecordDelivery(deviceToken string, payload []byte, status, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.deliveries[m.nextID] = &store.Delivery{
		ID:          m.nextID,
		DeviceToken: deviceToken,
		Status:      status,
		Reason:      reason,
		Payload:     payload,
		CreatedAt:   time.Now(),
	}
	return m.nextID, nil
}

func (m *MockStore) MarkDelivered(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.deliveries[id]; ok {
		d.Status = store.StatusDelivered
		d.Reason = ""
	}
	return nil
}

func (m *MockStore) MarkFailed(id int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.deliveries[id]; ok {
		d.Status = store.StatusFailed
		d.Reason = reason
	}
	return nil
}

func (m *MockStore) GetPendingDeliveries() ([]store.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Delivery
	for _, d := range m.deliveries {
		if d.Status == store.StatusPending {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *MockStore) GetStats() (store.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st store.Stats
	for _, d := range m.devices {
		if d.Active {
			st.Devices++
		}
	}
	for _, d := range m.deliveries {
		switch d.Status {
		case store.StatusDelivered:
			st.Delivered++
		case store.StatusFailed:
			st.Failed++
		case store.StatusPending:
			st.Pending++
		}
	}
	return st, nil
}

func (m *MockStore) CreateUser(username, passwordHash, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; ok {
		return fmt.Errorf("UNIQUE constraint failed: users.username")
	}
	m.users[username] = store.User{Username: username, PasswordHash: passwordHash, Role: role}
	return nil
}

func (m *MockStore) GetUser(username string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *MockStore) DeleteUser(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; !ok {
		return fmt.Errorf("user not found: %s", username)
	}
	delete(m.users, username)
	return nil
}

func (m *MockStore) ListUsers() ([]store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *MockStore) HasAdminUser() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Role == "admin" {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockStore) UpdateUserRole(username, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return fmt.Errorf("user not found: %s", username)
	}
	u.Role = role
	m.users[username] = u
	return nil
}

func (m *MockStore) delivery(id int64) store.Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.deliveries[id]
}
