package store

import "time"

// Device is a registered APNs device token.
type Device struct {
	Token string
	Name  string
	// Topic is a per-device bundle id override; empty uses the daemon
	// default.
	Topic     string
	Active    bool
	CreatedAt time.Time
}

// Delivery statuses.
const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Delivery is one recorded send attempt. Payload holds the original
// API message so pending deliveries can be rebuilt and retried.
type Delivery struct {
	ID          int64
	DeviceToken string
	Status      string
	Reason      string // gateway reason for failed attempts
	Payload     []byte
	CreatedAt   time.Time
}

type User struct {
	Username     string
	PasswordHash string
	Role         string
}

type Stats struct {
	Devices   int
	Delivered int64
	Failed    int64
	Pending   int64
}

type Store interface {
	// Devices
	RegisterDevice(token, name, topic string) error
	RemoveDevice(token string) error
	DeactivateDevice(token string) error
	GetDevice(token string) (*Device, error)
	ListDevices(activeOnly bool) ([]Device, error)

	// Deliveries
	RecordDelivery(deviceToken string, payload []byte, status, reason string) (int64, error)
	MarkDelivered(id int64) error
	MarkFailed(id int64, reason string) error
	GetPendingDeliveries() ([]Delivery, error)
	GetStats() (Stats, error)

	// Users
	CreateUser(username, passwordHash, role string) error
	GetUser(username string) (*User, error)
	DeleteUser(username string) error
	ListUsers() ([]User, error)
	HasAdminUser() (bool, error)
	UpdateUserRole(username, role string) error
}
