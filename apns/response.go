package apns

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Reasons the gateway reports on rejected notifications.
const (
	ReasonBadCollapseID               = "BadCollapseId"
	ReasonBadDeviceToken              = "BadDeviceToken"
	ReasonBadExpirationDate           = "BadExpirationDate"
	ReasonBadMessageID                = "BadMessageId"
	ReasonBadPriority                 = "BadPriority"
	ReasonBadTopic                    = "BadTopic"
	ReasonDeviceTokenNotForTopic      = "DeviceTokenNotForTopic"
	ReasonDuplicateHeaders            = "DuplicateHeaders"
	ReasonIdleTimeout                 = "IdleTimeout"
	ReasonInvalidPushType             = "InvalidPushType"
	ReasonMissingDeviceToken          = "MissingDeviceToken"
	ReasonMissingTopic                = "MissingTopic"
	ReasonPayloadEmpty                = "PayloadEmpty"
	ReasonTopicDisallowed             = "TopicDisallowed"
	ReasonBadCertificate              = "BadCertificate"
	ReasonBadCertificateEnvironment   = "BadCertificateEnvironment"
	ReasonExpiredProviderToken        = "ExpiredProviderToken"
	ReasonForbidden                   = "Forbidden"
	ReasonInvalidProviderToken        = "InvalidProviderToken"
	ReasonMissingProviderToken        = "MissingProviderToken"
	ReasonBadPath                     = "BadPath"
	ReasonMethodNotAllowed            = "MethodNotAllowed"
	ReasonUnregistered                = "Unregistered"
	ReasonPayloadTooLarge             = "PayloadTooLarge"
	ReasonTooManyProviderTokenUpdates = "TooManyProviderTokenUpdates"
	ReasonTooManyRequests             = "TooManyRequests"
	ReasonInternalServerError         = "InternalServerError"
	ReasonServiceUnavailable          = "ServiceUnavailable"
	ReasonShutdown                    = "Shutdown"

	// ReasonUnknownError stands in when the gateway's response body is
	// not parseable JSON.
	ReasonUnknownError = "unknownError"
)

// Rejection is a non-200 gateway response tied to the notification that
// provoked it. It is both the error returned from Send and the payload
// delivered to event subscribers.
type Rejection struct {
	StatusCode int
	Reason     string
	// Timestamp is set on 410 responses: the last moment the device
	// token was valid, in epoch milliseconds.
	Timestamp    int64
	ApnsID       string
	Notification *Notification
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("apns: %d %s", r.StatusCode, r.Reason)
}

// classify interprets a completed gateway response. A 200 means the
// notification was accepted; anything else becomes a Rejection.
func classify(resp *http.Response, n *Notification) *Rejection {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	rej := &Rejection{
		StatusCode:   resp.StatusCode,
		Reason:       ReasonUnknownError,
		ApnsID:       resp.Header.Get("apns-id"),
		Notification: n,
	}

	var body struct {
		Reason    string `json:"reason"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Reason != "" {
		rej.Reason = body.Reason
		rej.Timestamp = body.Timestamp
	}
	return rej
}
