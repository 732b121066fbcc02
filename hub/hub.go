package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"apnsd/apns"
	"apnsd/store"
)

var ErrDeviceNotFound = errors.New("device not found")

// Pusher is the slice of apns.Client the hub depends on. Tests swap in
// a mock.
type Pusher interface {
	Send(ctx context.Context, n *apns.Notification) (*apns.Notification, error)
	SendMany(ctx context.Context, ns []*apns.Notification) []apns.Result
}

// Message is an inbound push request from the API.
type Message struct {
	// DeviceToken targets one device; empty broadcasts to every active
	// device.
	DeviceToken string         `json:"device_token,omitempty"`
	Title       string         `json:"title,omitempty"`
	Body        string         `json:"body,omitempty"`
	Badge       *int           `json:"badge,omitempty"`
	Sound       string         `json:"sound,omitempty"`
	CollapseID  string         `json:"collapse_id,omitempty"`
	Background  bool           `json:"background,omitempty"`
	Expiration  int64          `json:"expiration,omitempty"` // epoch seconds
	Data        map[string]any `json:"data,omitempty"`
}

// PushReport summarizes one Push call.
type PushReport struct {
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
	Queued    int `json:"queued"`
}

// Hub routes push requests to the APNs client and records every
// outcome in the store.
type Hub struct {
	pusher Pusher
	store  store.Store
}

func NewHub(s store.Store, p Pusher) *Hub {
	return &Hub{pusher: p, store: s}
}

// WatchFeedback subscribes to the client's rejection events and
// deactivates devices the gateway reports as gone, so broadcasts stop
// wasting sends on them.
func (h *Hub) WatchFeedback(events *apns.Events) {
	events.On(apns.ReasonUnregistered, h.deactivateDevice)
	events.On(apns.ReasonBadDeviceToken, h.deactivateDevice)
}

func (h *Hub) deactivateDevice(rej *apns.Rejection) {
	token := rej.Notification.DeviceToken
	if err := h.store.DeactivateDevice(token); err != nil {
		log.Printf("[Hub] Failed to deactivate device %s: %v", token, err)
		return
	}
	log.Printf("[Hub] Deactivated device %s (%s)", token, rej.Reason)
}

// Push delivers a message to its target device, or to all active
// devices when no target is set. Retryable failures are queued for the
// background processor instead of being dropped.
func (h *Hub) Push(ctx context.Context, m Message) (PushReport, error) {
	var devices []store.Device
	if m.DeviceToken != "" {
		dev, err := h.store.GetDevice(m.DeviceToken)
		if err != nil {
			return PushReport{}, err
		}
		if dev == nil || !dev.Active {
			return PushReport{}, ErrDeviceNotFound
		}
		devices = []store.Device{*dev}
	} else {
		var err error
		devices, err = h.store.ListDevices(true)
		if err != nil {
			return PushReport{}, err
		}
	}

	notifications := make([]*apns.Notification, len(devices))
	for i, dev := range devices {
		notifications[i] = buildNotification(m, dev)
	}

	results := h.pusher.SendMany(ctx, notifications)

	var report PushReport
	for i, res := range results {
		dev := devices[i]
		perDevice := m
		perDevice.DeviceToken = dev.Token
		payload, err := json.Marshal(perDevice)
		if err != nil {
			log.Printf("[Hub] Failed to marshal delivery payload: %v", err)
		}

		switch {
		case res.Err == nil:
			report.Delivered++
			h.record(dev.Token, payload, store.StatusDelivered, "")
		case retryable(res.Err):
			report.Queued++
			h.record(dev.Token, payload, store.StatusPending, failureReason(res.Err))
		default:
			report.Failed++
			h.record(dev.Token, payload, store.StatusFailed, failureReason(res.Err))
		}
	}
	return report, nil
}

func (h *Hub) record(token string, payload []byte, status, reason string) {
	if _, err := h.store.RecordDelivery(token, payload, status, reason); err != nil {
		log.Printf("[Hub] Failed to record delivery for %s: %v", token, err)
	}
}

// buildNotification maps an API message onto a notification for one
// device. The device's topic override, when set, rides along so the
// client's default topic only applies to devices without one.
func buildNotification(m Message, dev store.Device) *apns.Notification {
	n := apns.NewNotification(dev.Token)
	if m.Background {
		n.PushType = apns.PushTypeBackground
		n.Priority = apns.PriorityThrottled
		n.ContentAvailable = true
	} else if m.Title != "" || m.Body != "" {
		n.Alert = &apns.Alert{Title: m.Title, Body: m.Body}
	}
	n.Badge = m.Badge
	n.Sound = m.Sound
	n.CollapseID = m.CollapseID
	n.Topic = dev.Topic
	n.Data = m.Data
	if m.Expiration > 0 {
		n.Expiration = apns.UnixExpiration(m.Expiration)
	}
	return n
}

// retryable reports whether a failed send is worth another attempt.
// Transport faults and gateway load shedding are; everything else is a
// permanent verdict about the notification or the device.
func retryable(err error) bool {
	var rej *apns.Rejection
	if !errors.As(err, &rej) {
		return true
	}
	switch rej.Reason {
	case apns.ReasonTooManyRequests,
		apns.ReasonInternalServerError,
		apns.ReasonServiceUnavailable,
		apns.ReasonShutdown:
		return true
	}
	return false
}

func failureReason(err error) string {
	var rej *apns.Rejection
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return err.Error()
}

// StartQueueProcessor starts a background goroutine that retries pending
// deliveries every 10 seconds
func (h *Hub) StartQueueProcessor(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Println("[Queue] Processor stopped")
				return
			case <-ticker.C:
				h.processQueue(ctx)
			}
		}
	}()
	log.Println("[Queue] Processor started (10s interval)")
}

// processQueue retries all pending deliveries once. Retryable failures
// stay pending for the next tick.
func (h *Hub) processQueue(ctx context.Context) {
	pending, err := h.store.GetPendingDeliveries()
	if err != nil {
		log.Printf("[Queue] Failed to get pending deliveries: %v", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	log.Printf("[Queue] Retrying %d pending deliveries", len(pending))

	for _, item := range pending {
		var m Message
		if err := json.Unmarshal(item.Payload, &m); err != nil {
			log.Printf("[Queue] Delivery %d has an unreadable payload: %v", item.ID, err)
			h.store.MarkFailed(item.ID, "unreadable payload")
			continue
		}

		dev, err := h.store.GetDevice(item.DeviceToken)
		if err != nil {
			log.Printf("[Queue] Failed to load device %s: %v", item.DeviceToken, err)
			continue
		}
		if dev == nil || !dev.Active {
			h.store.MarkFailed(item.ID, "device inactive")
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err = h.pusher.Send(sendCtx, buildNotification(m, *dev))
		cancel()

		if err == nil {
			if err := h.store.MarkDelivered(item.ID); err != nil {
				log.Printf("[Queue] Failed to mark delivery %d: %v", item.ID, err)
			} else {
				log.Printf("[Queue] Delivered %d to %s", item.ID, item.DeviceToken)
			}
		} else if !retryable(err) {
			h.store.MarkFailed(item.ID, failureReason(err))
			log.Printf("[Queue] Delivery %d failed permanently: %v", item.ID, err)
		}
	}
}

// Store proxies for the API layer.

func (h *Hub) RegisterDevice(token, name, topic string) error {
	return h.store.RegisterDevice(token, name, topic)
}

func (h *Hub) RemoveDevice(token string) error {
	return h.store.RemoveDevice(token)
}

func (h *Hub) ListDevices(activeOnly bool) ([]store.Device, error) {
	return h.store.ListDevices(activeOnly)
}

func (h *Hub) GetStats() (store.Stats, error) {
	return h.store.GetStats()
}
