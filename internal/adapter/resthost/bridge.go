// Package resthost bridges the coordinator to a remote session host daemon.
// Steering calls go out as HTTP requests against the daemon's API; the
// daemon pushes session events back through the coordinator's webhook
// endpoint, which hands them to Deliver.
package resthost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Strob0t/SwarmPilot/internal/config"
	"github.com/Strob0t/SwarmPilot/internal/port/sessionhost"
)

// Bridge implements sessionhost.Host over HTTP.
type Bridge struct {
	baseURL    string
	token      string
	httpClient *http.Client

	mu       sync.RWMutex
	handlers map[int]sessionhost.EventHandler
	nextID   int
}

var _ sessionhost.Host = (*Bridge)(nil)

// NewBridge creates a Bridge for the host daemon at cfg.URL.
func NewBridge(cfg config.SessionHost) *Bridge {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Bridge{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		handlers:   make(map[int]sessionhost.EventHandler),
	}
}

// SendText types text into the session's input.
func (b *Bridge) SendText(ctx context.Context, sessionID, text string) error {
	return b.post(ctx, "/sessions/"+url.PathEscape(sessionID)+"/input",
		map[string]any{"text": text})
}

// SendKeys sends a raw key sequence to the session.
func (b *Bridge) SendKeys(ctx context.Context, sessionID string, keys []string) error {
	return b.post(ctx, "/sessions/"+url.PathEscape(sessionID)+"/keys",
		map[string]any{"keys": keys})
}

// Stop terminates the session.
func (b *Bridge) Stop(ctx context.Context, sessionID string) error {
	return b.post(ctx, "/sessions/"+url.PathEscape(sessionID)+"/stop", nil)
}

// RecentOutput fetches up to lines of recent terminal output.
func (b *Bridge) RecentOutput(ctx context.Context, sessionID string, lines int) (string, error) {
	endpoint := b.baseURL + "/sessions/" + url.PathEscape(sessionID) + "/output?lines=" + strconv.Itoa(lines)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	b.setHeaders(req)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("session host request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", httpError(resp)
	}

	var body struct {
		Output string `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode output response: %w", err)
	}
	return body.Output, nil
}

// Subscribe registers a handler for events delivered via Deliver.
func (b *Bridge) Subscribe(handler sessionhost.EventHandler) (func(), error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}, nil
}

// Deliver fans one pushed host event out to all subscribed handlers.
// Called by the webhook ingress.
func (b *Bridge) Deliver(sessionID, event string, data map[string]any) {
	b.mu.RLock()
	handlers := make([]sessionhost.EventHandler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(sessionID, event, data)
	}
}

func (b *Bridge) post(ctx context.Context, path string, payload map[string]any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	b.setHeaders(req)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("session host request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (b *Bridge) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
}

func httpError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("session host returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}
