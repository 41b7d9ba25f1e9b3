package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskbridge/mcp-rest-bridge/internal/jsonrpc"
)

// ProtocolVersion is the MCP protocol revision announced during the
// initialize handshake.
const ProtocolVersion = "2024-11-05"

// Response header variants that may carry the upstream session identifier.
const (
	sessionHeader    = "Mcp-Session-Id"
	sessionHeaderAlt = "X-Session-Id"
)

// sessionIDPattern pulls a sessionId token out of free text. It matches
// both plain JSON ("sessionId":"abc") and event-stream framed bodies; the
// captured alphabet is deliberately constrained so a framing surprise can
// never yield garbage.
var sessionIDPattern = regexp.MustCompile(`sessionId["'\s:=]+([A-Za-z0-9_-]+)`)

// InitializeParams is the payload of the initialize handshake call.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      ClientInfo     `json:"clientInfo"`
}

// ClientInfo identifies this gateway to the upstream.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// SessionManager owns the upstream session identifier and initialization
// state. It acquires a session through the initialize handshake, caches it
// until invalidated, and synthesizes a local identifier when the upstream
// refuses to hand one out.
//
// The mutex guards field access only and is never held across network I/O:
// concurrent callers observing an uninitialized session may race to acquire
// one, and the last successful acquisition overwrites the cache. That
// duplicate-handshake race is accepted; the handshake is idempotent from
// the upstream's perspective.
type SessionManager struct {
	mu          sync.Mutex
	id          string
	initialized bool

	endpoint         string
	client           *http.Client
	handshakeTimeout time.Duration
	logger           *slog.Logger
}

// NewSessionManager creates a session manager for the given RPC endpoint.
// The HTTP client is injectable so tests can point it at a fake upstream.
func NewSessionManager(endpoint string, client *http.Client, handshakeTimeout time.Duration, logger *slog.Logger) *SessionManager {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if handshakeTimeout <= 0 {
		handshakeTimeout = 5 * time.Second
	}
	return &SessionManager{
		endpoint:         endpoint,
		client:           client,
		handshakeTimeout: handshakeTimeout,
		logger:           logger,
	}
}

// Current returns the cached session identifier and whether the manager is
// initialized.
func (m *SessionManager) Current() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, m.initialized
}

// EnsureSession guarantees a usable session identifier. Idempotent: a
// cached, initialized session is returned immediately with no network
// activity. Otherwise the initialize handshake is attempted and, failing
// that, a local identifier is synthesized — handshake failure is never
// fatal, only the "real" session being upstream-recognized is lost.
func (m *SessionManager) EnsureSession(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.initialized && m.id != "" {
		id := m.id
		m.mu.Unlock()
		return id, nil
	}
	m.mu.Unlock()

	m.logger.Debug("acquiring upstream session", "endpoint", m.endpoint)

	id, err := m.handshake(ctx)
	if err != nil {
		m.logger.Warn("initialize handshake failed, synthesizing session id", "error", err)
	} else if id == "" {
		m.logger.Debug("handshake succeeded but yielded no session id")
	}

	if id == "" {
		id = GenerateFallbackID()
		m.logger.Info("using synthesized session id", "session_id", id)
	} else {
		m.logger.Info("upstream session acquired", "session_id", id)
	}

	m.mu.Lock()
	m.id = id
	m.initialized = true
	m.mu.Unlock()

	return id, nil
}

// Invalidate clears the cached session so the next call re-acquires one.
// Called after any upstream failure: no attempt is made to distinguish
// session expiry from transient network errors, trading the occasional
// unnecessary handshake for simplicity.
func (m *SessionManager) Invalidate() {
	m.mu.Lock()
	id := m.id
	m.id = ""
	m.initialized = false
	m.mu.Unlock()

	m.logger.Info("session invalidated", "session_id", id)
}

// handshake sends the initialize call and tries to locate a session
// identifier in the response: transport headers first, then the body text.
// An empty id with a nil error means the handshake completed but the
// upstream exposed no identifier anywhere.
func (m *SessionManager) handshake(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.handshakeTimeout)
	defer cancel()

	envelope := jsonrpc.NewRequest("initialize", InitializeParams{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo: ClientInfo{
			Name:    "mcp-rest-bridge",
			Version: "1.0.0",
		},
	})

	payload, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("failed to marshal initialize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create initialize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("initialize request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read initialize response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("initialize returned status %d: %s", resp.StatusCode, string(body))
	}

	if id := resp.Header.Get(sessionHeader); id != "" {
		return id, nil
	}
	if id := resp.Header.Get(sessionHeaderAlt); id != "" {
		return id, nil
	}

	return extractSessionID(body), nil
}

// extractSessionID pattern-matches a sessionId token out of a response body,
// whether plain JSON or event-stream framed. Best-effort by design: the
// upstream's session placement contract is unspecified, so this is the last
// resort before synthesizing an identifier locally.
func extractSessionID(body []byte) string {
	match := sessionIDPattern.FindSubmatch(body)
	if match == nil {
		return ""
	}
	return string(match[1])
}

// GenerateFallbackID synthesizes a local session identifier of the form
// session_<unixMillis>_<token>. It permits best-effort forward progress
// against upstreams that tolerate unrecognized sessions.
func GenerateFallbackID() string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), token)
}
