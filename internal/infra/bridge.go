package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// ── HTTP bridge ───────────────────────────────────────────────────────────────
// HTTPBridge hands print messages to the mobile host app, which owns the
// Bluetooth printer pairing. The host answers 2xx once it has queued the job.

type HTTPBridge struct {
	url        string
	httpClient *http.Client
	cb         *CircuitBreaker
}

// NewHTTPBridge posts to url. Consecutive failures trip the breaker so a
// missing host app fails fast instead of stalling every print for the timeout.
func NewHTTPBridge(url string, cb *CircuitBreaker) *HTTPBridge {
	if cb == nil {
		cb = NewCircuitBreaker(DefaultCBConfig())
	}
	return &HTTPBridge{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cb:         cb,
	}
}

// Breaker exposes the circuit state for the health endpoint.
func (b *HTTPBridge) Breaker() *CircuitBreaker { return b.cb }

// PostMessage sends message as the JSON request body.
func (b *HTTPBridge) PostMessage(ctx context.Context, message string) error {
	return b.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader([]byte(message)))
		if err != nil {
			return fmt.Errorf("bridge: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := b.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("bridge: host unreachable: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("bridge: host returned %d", resp.StatusCode)
		}
		return nil
	})
}

// ── Redis bridge ──────────────────────────────────────────────────────────────
// RedisBridge publishes print messages on "<prefix>:<deviceMacAddress>". The
// host app subscribes to the channel of the printer it is paired with.

// ErrNoBridgeListener is returned when nobody is subscribed to the channel.
var ErrNoBridgeListener = errors.New("bridge: no host app listening for device")

type RedisBridge struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisBridge(rdb *redis.Client, prefix string) *RedisBridge {
	if prefix == "" {
		prefix = "print"
	}
	return &RedisBridge{rdb: rdb, prefix: prefix}
}

// Channel returns the channel for device mac.
func (b *RedisBridge) Channel(mac string) string { return b.prefix + ":" + mac }

func (b *RedisBridge) PostMessage(ctx context.Context, message string) error {
	var head struct {
		DeviceMacAddress string `json:"deviceMacAddress"`
	}
	if err := json.Unmarshal([]byte(message), &head); err != nil {
		return fmt.Errorf("bridge: decode message: %w", err)
	}
	if head.DeviceMacAddress == "" {
		return errors.New("bridge: message has no deviceMacAddress")
	}

	receivers, err := b.rdb.Publish(ctx, b.Channel(head.DeviceMacAddress), message).Result()
	if err != nil {
		return fmt.Errorf("bridge: publish: %w", err)
	}
	if receivers == 0 {
		return ErrNoBridgeListener
	}
	return nil
}
