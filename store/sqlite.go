package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS devices (
			token TEXT PRIMARY KEY,
			name TEXT,
			topic TEXT,
			active INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS deliveries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_token TEXT,
			status TEXT DEFAULT 'pending',
			reason TEXT DEFAULT '',
			payload BLOB,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(device_token) REFERENCES devices(token)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_deliveries_status ON deliveries(status);`,
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password_hash TEXT,
			role TEXT
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("error creating schema: %v", err)
		}
	}
	return nil
}

// Devices

func (s *SQLiteStore) RegisterDevice(token, name, topic string) error {
	// Re-registering an existing token reactivates it.
	_, err := s.db.Exec(
		`INSERT INTO devices (token, name, topic, active) VALUES (?, ?, ?, 1)
		 ON CONFLICT(token) DO UPDATE SET name = excluded.name, topic = excluded.topic, active = 1`,
		token, name, topic)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RemoveDevice(token string) error {
	_, err := s.db.Exec(`DELETE FROM devices WHERE token = ?`, token)
	return err
}

func (s *SQLiteStore) DeactivateDevice(token string) error {
	res, err := s.db.Exec(`UPDATE devices SET active = 0 WHERE token = ?`, token)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("device not found: %s", token)
	}
	return nil
}

func (s *SQLiteStore) GetDevice(token string) (*Device, error) {
	var d Device
	err := s.db.QueryRow(
		`SELECT token, name, topic, active, created_at FROM devices WHERE token = ?`, token).
		Scan(&d.Token, &d.Name, &d.Topic, &d.Active, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *SQLiteStore) ListDevices(activeOnly bool) ([]Device, error) {
	query := `SELECT token, name, topic, active, created_at FROM devices`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		var d Device
		if err := rows.Scan(&d.Token, &d.Name, &d.Topic, &d.Active, &d.CreatedAt); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// Deliveries

func (s *SQLiteStore) RecordDelivery(deviceToken string, payload []byte, status, reason string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO deliveries (device_token, status, reason, payload) VALUES (?, ?, ?, ?)`,
		deviceToken, status, reason, payload)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) MarkDelivered(id int64) error {
	_, err := s.db.Exec(`UPDATE deliveries SET status = 'delivered', reason = '' WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) MarkFailed(id int64, reason string) error {
	_, err := s.db.Exec(`UPDATE deliveries SET status = 'failed', reason = ? WHERE id = ?`, reason, id)
	return err
}

func (s *SQLiteStore) GetPendingDeliveries() ([]Delivery, error) {
	rows, err := s.db.Query(
		`SELECT id, device_token, status, reason, payload, created_at
		 FROM deliveries WHERE status = 'pending' ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Delivery
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.ID, &d.DeviceToken, &d.Status, &d.Reason, &d.Payload, &d.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, nil
}

func (s *SQLiteStore) GetStats() (Stats, error) {
	var st Stats
	if err := s.db.QueryRow(`SELECT count(*) FROM devices WHERE active = 1`).Scan(&st.Devices); err != nil {
		return st, err
	}
	if err := s.db.QueryRow(`SELECT count(*) FROM deliveries WHERE status = 'delivered'`).Scan(&st.Delivered); err != nil {
		return st, err
	}
	if err := s.db.QueryRow(`SELECT count(*) FROM deliveries WHERE status = 'failed'`).Scan(&st.Failed); err != nil {
		return st, err
	}
	if err := s.db.QueryRow(`SELECT count(*) FROM deliveries WHERE status = 'pending'`).Scan(&st.Pending); err != nil {
		return st, err
	}
	return st, nil
}

// Users

func (s *SQLiteStore) CreateUser(username, passwordHash, role string) error {
	_, err := s.db.Exec(`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`, username, passwordHash, role)
	return err
}

func (s *SQLiteStore) GetUser(username string) (*User, error) {
	var u User
	err := s.db.QueryRow(`SELECT username, password_hash, role FROM users WHERE username = ?`, username).
		Scan(&u.Username, &u.PasswordHash, &u.Role)
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLiteStore) DeleteUser(username string) error {
	res, err := s.db.Exec(`DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user not found: %s", username)
	}
	return nil
}

func (s *SQLiteStore) ListUsers() ([]User, error) {
	rows, err := s.db.Query(`SELECT username, password_hash, role FROM users`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Username, &u.PasswordHash, &u.Role); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *SQLiteStore) HasAdminUser() (bool, error) {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE role = 'admin')`).Scan(&exists)
	return exists, err
}

func (s *SQLiteStore) UpdateUserRole(username, role string) error {
	_, err := s.db.Exec(`UPDATE users SET role = ? WHERE username = ?`, role, username)
	return err
}
