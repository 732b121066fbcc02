package apns

import (
	"encoding/json"
	"errors"
	"time"
)

// Push types accepted by the gateway in the apns-push-type header.
const (
	PushTypeAlert        = "alert"
	PushTypeBackground   = "background"
	PushTypeLocation     = "location"
	PushTypeVOIP         = "voip"
	PushTypeComplication = "complication"
	PushTypeFileProvider = "fileprovider"
	PushTypeMDM          = "mdm"
	PushTypeLiveActivity = "liveactivity"
	PushTypePushToTalk   = "pushtotalk"
)

// Delivery priorities.
const (
	PriorityImmediate = 10
	PriorityThrottled = 5
	PriorityPassive   = 1
)

// MaxPayloadSize is the gateway's limit for a serialized notification
// payload (VoIP pushes allow more; we enforce the common limit).
const MaxPayloadSize = 4096

var ErrPayloadTooLarge = errors.New("apns: payload exceeds 4096 bytes")

// Alert is the user-visible portion of the aps dictionary. Notification.Alert
// may hold an *Alert or a plain string.
type Alert struct {
	Title       string `json:"title,omitempty"`
	Subtitle    string `json:"subtitle,omitempty"`
	Body        string `json:"body,omitempty"`
	LaunchImage string `json:"launch-image,omitempty"`
}

// Notification describes one push to one device. The zero value is not
// usable; NewNotification fills in the defaults the gateway expects.
type Notification struct {
	DeviceToken string
	PushType    string
	Priority    int

	// Topic overrides the client's default topic when set.
	Topic string
	// Expiration is when the gateway stops retrying delivery. The zero
	// value omits the header (deliver once, now or never).
	Expiration time.Time
	CollapseID string

	Alert            any // string or *Alert
	Badge            *int
	Sound            string
	Category         string
	ThreadID         string
	ContentAvailable bool
	MutableContent   bool
	TargetContentID  string

	// Data holds custom top-level payload keys alongside "aps".
	Data map[string]any
}

// NewNotification creates an alert notification with immediate priority.
func NewNotification(deviceToken string) *Notification {
	return &Notification{
		DeviceToken: deviceToken,
		PushType:    PushTypeAlert,
		Priority:    PriorityImmediate,
	}
}

// UnixExpiration converts an epoch-seconds expiration into the calendar
// form carried on the notification. Both forms produce the same
// apns-expiration header for the same instant.
func UnixExpiration(sec int64) time.Time {
	return time.Unix(sec, 0)
}

// BuildPayload assembles the aps dictionary plus any custom keys. An
// "aps" entry in Data is ignored; the built dictionary always wins.
func (n *Notification) BuildPayload() map[string]any {
	aps := map[string]any{}
	if n.Alert != nil {
		aps["alert"] = n.Alert
	}
	if n.Badge != nil {
		aps["badge"] = *n.Badge
	}
	if n.Sound != "" {
		aps["sound"] = n.Sound
	}
	if n.Category != "" {
		aps["category"] = n.Category
	}
	if n.ThreadID != "" {
		aps["thread-id"] = n.ThreadID
	}
	if n.ContentAvailable {
		aps["content-available"] = 1
	}
	if n.MutableContent {
		aps["mutable-content"] = 1
	}
	if n.TargetContentID != "" {
		aps["target-content-id"] = n.TargetContentID
	}

	payload := map[string]any{"aps": aps}
	for k, v := range n.Data {
		if k == "aps" {
			continue
		}
		payload[k] = v
	}
	return payload
}

// MarshalPayload serializes the built payload and enforces the size cap.
func (n *Notification) MarshalPayload() ([]byte, error) {
	body, err := json.Marshal(n.BuildPayload())
	if err != nil {
		return nil, err
	}
	if len(body) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	return body, nil
}
