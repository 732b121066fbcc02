package apns

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// requestBuilder assembles gateway requests. It is pure: the same
// notification and token always yield the same request.
type requestBuilder struct {
	host         string
	defaultTopic string
}

func (b requestBuilder) build(ctx context.Context, n *Notification, token string) (*http.Request, error) {
	body, err := n.MarshalPayload()
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("https://%s/3/device/%s", b.host, url.PathEscape(n.DeviceToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("authorization", "bearer "+token)
	req.Header.Set("apns-push-type", n.PushType)
	req.Header.Set("apns-priority", strconv.Itoa(n.Priority))
	if n.Topic != "" {
		req.Header.Set("apns-topic", n.Topic)
	} else if b.defaultTopic != "" {
		req.Header.Set("apns-topic", b.defaultTopic)
	}
	if !n.Expiration.IsZero() {
		req.Header.Set("apns-expiration", strconv.FormatInt(n.Expiration.Unix(), 10))
	}
	if n.CollapseID != "" {
		req.Header.Set("apns-collapse-id", n.CollapseID)
	}
	req.Header.Set("content-type", "application/json")

	return req, nil
}
