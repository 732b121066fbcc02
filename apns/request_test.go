package apns

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestBuildRequestURLAndHeaders(t *testing.T) {
	b := requestBuilder{host: HostProduction, defaultTopic: "com.example.app"}
	n := NewNotification("abc123")
	n.Alert = "hello"
	n.CollapseID = "game-score"

	req, err := b.build(context.Background(), n, "tok")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	want := "https://api.push.apple.com/3/device/abc123"
	if req.URL.String() != want {
		t.Errorf("Expected URL %s, got %s", want, req.URL)
	}
	if got := req.Header.Get("authorization"); got != "bearer tok" {
		t.Errorf("Expected bearer auth header, got %q", got)
	}
	if got := req.Header.Get("apns-push-type"); got != "alert" {
		t.Errorf("Expected push type alert, got %q", got)
	}
	if got := req.Header.Get("apns-priority"); got != "10" {
		t.Errorf("Expected priority 10, got %q", got)
	}
	if got := req.Header.Get("apns-collapse-id"); got != "game-score" {
		t.Errorf("Expected collapse id, got %q", got)
	}

	body, _ := io.ReadAll(req.Body)
	if !strings.Contains(string(body), `"alert":"hello"`) {
		t.Errorf("Expected payload to carry the alert, got %s", body)
	}
}

func TestBuildRequestEscapesDeviceToken(t *testing.T) {
	b := requestBuilder{host: HostProduction}
	n := NewNotification("with space/slash")

	req, err := b.build(context.Background(), n, "tok")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !strings.HasSuffix(req.URL.String(), "/3/device/with%20space%2Fslash") {
		t.Errorf("Expected percent-encoded device token, got %s", req.URL)
	}
}

func TestTopicFallback(t *testing.T) {
	b := requestBuilder{host: HostProduction, defaultTopic: "com.example.app"}

	// No override: the client default wins.
	n := NewNotification("abc")
	req, _ := b.build(context.Background(), n, "tok")
	if got := req.Header.Get("apns-topic"); got != "com.example.app" {
		t.Errorf("Expected default topic, got %q", got)
	}

	// Notification override wins over the default.
	n.Topic = "com.example.other"
	req, _ = b.build(context.Background(), n, "tok")
	if got := req.Header.Get("apns-topic"); got != "com.example.other" {
		t.Errorf("Expected notification topic to override, got %q", got)
	}

	// Neither set: header omitted entirely.
	bare := requestBuilder{host: HostProduction}
	req, _ = bare.build(context.Background(), NewNotification("abc"), "tok")
	if _, ok := req.Header["Apns-Topic"]; ok {
		t.Error("Expected apns-topic to be omitted when no topic is known")
	}
}

func TestExpirationHeaderEquivalence(t *testing.T) {
	b := requestBuilder{host: HostProduction}

	fromUnix := NewNotification("abc")
	fromUnix.Expiration = UnixExpiration(1700000000)

	fromCalendar := NewNotification("abc")
	fromCalendar.Expiration = time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC)

	reqA, _ := b.build(context.Background(), fromUnix, "tok")
	reqB, _ := b.build(context.Background(), fromCalendar, "tok")

	if got := reqA.Header.Get("apns-expiration"); got != "1700000000" {
		t.Errorf("Expected apns-expiration 1700000000, got %q", got)
	}
	if reqA.Header.Get("apns-expiration") != reqB.Header.Get("apns-expiration") {
		t.Errorf("Expected identical headers for the same instant, got %q and %q",
			reqA.Header.Get("apns-expiration"), reqB.Header.Get("apns-expiration"))
	}

	// Zero expiration: header omitted.
	req, _ := b.build(context.Background(), NewNotification("abc"), "tok")
	if _, ok := req.Header["Apns-Expiration"]; ok {
		t.Error("Expected apns-expiration to be omitted for the zero value")
	}
}
