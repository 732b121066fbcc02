// Package apns delivers push notifications to Apple's HTTP/2 gateway
// using provider-token (ES256) authentication.
package apns

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"
)

// Gateway hosts.
const (
	HostProduction  = "api.push.apple.com"
	HostDevelopment = "api.sandbox.push.apple.com"
)

// Config carries the immutable client settings. Host understands
// "production" (the default), "development", or a literal hostname.
type Config struct {
	TeamID string
	KeyID  string
	// SigningKey is the PEM-encoded .p8 auth key. Ignored when Signer
	// is set.
	SigningKey []byte
	Signer     Signer

	Host         string
	DefaultTopic string

	// RequestTimeout bounds each gateway call; zero means no timeout.
	RequestTimeout time.Duration
	// KeepAlive, when set, pings idle HTTP/2 connections at this
	// interval so dead ones are detected between sends.
	KeepAlive time.Duration
}

var (
	ErrMissingTeamID     = errors.New("apns: config requires a team id")
	ErrMissingKeyID      = errors.New("apns: config requires a key id")
	ErrMissingSigningKey = errors.New("apns: config requires a signing key or signer")
)

// Client sends notifications to the gateway. It is safe for concurrent
// use; a single client should be shared for the process lifetime so the
// provider token cache and HTTP/2 connection are reused.
type Client struct {
	events  *Events
	tokens  *tokenStore
	builder requestBuilder
	http    *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.TeamID == "" {
		return nil, ErrMissingTeamID
	}
	if cfg.KeyID == "" {
		return nil, ErrMissingKeyID
	}

	signer := cfg.Signer
	if signer == nil {
		if len(cfg.SigningKey) == 0 {
			return nil, ErrMissingSigningKey
		}
		key, err := AuthKeyFromBytes(cfg.SigningKey)
		if err != nil {
			return nil, err
		}
		signer = NewES256Signer(key)
	}

	transport := &http2.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	}
	if cfg.KeepAlive > 0 {
		transport.ReadIdleTimeout = cfg.KeepAlive
	}

	return &Client{
		events:  newEvents(),
		tokens:  newTokenStore(signer, cfg.TeamID, cfg.KeyID),
		builder: requestBuilder{host: resolveHost(cfg.Host), defaultTopic: cfg.DefaultTopic},
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
	}, nil
}

func resolveHost(host string) string {
	switch host {
	case "", "production":
		return HostProduction
	case "development", "sandbox":
		return HostDevelopment
	default:
		return host
	}
}

// Events exposes the rejection event channel for external observers.
func (c *Client) Events() *Events {
	return c.events
}

// Send delivers one notification. On acceptance it returns the same
// notification it was given. A gateway rejection comes back as a
// *Rejection error and is also emitted on the event channel; transport
// faults are returned unchanged and not classified.
//
// A rejection for an expired provider token clears the token cache so
// the next send re-signs without caller intervention.
func (c *Client) Send(ctx context.Context, n *Notification) (*Notification, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}

	req, err := c.builder.build(ctx, n, token)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	rej := classify(resp, n)
	if rej == nil {
		return n, nil
	}
	if rej.Reason == ReasonExpiredProviderToken {
		c.tokens.Invalidate()
	}
	c.events.emit(rej)
	return nil, rej
}

// Result is one element of a SendMany response.
type Result struct {
	Notification *Notification
	Err          error
}

// SendMany issues Send for every notification concurrently. The result
// slice matches the input in order and length; failures of any kind
// land in the element's Err rather than aborting the batch.
func (c *Client) SendMany(ctx context.Context, ns []*Notification) []Result {
	results := make([]Result, len(ns))
	var wg sync.WaitGroup
	for i, n := range ns {
		wg.Add(1)
		go func(i int, n *Notification) {
			defer wg.Done()
			sent, err := c.Send(ctx, n)
			if err != nil {
				results[i] = Result{Err: err}
				return
			}
			results[i] = Result{Notification: sent}
		}(i, n)
	}
	wg.Wait()
	return results
}
