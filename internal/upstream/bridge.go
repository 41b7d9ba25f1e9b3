package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/taskbridge/mcp-rest-bridge/internal/jsonrpc"
)

// Result is the normalized outcome of one upstream call. Raw always holds
// the exact response body; Payload is set when a JSON document could be
// identified (the body itself, or the data extracted from an event-stream
// frame). EventStream marks bodies that arrived stream-framed, which are
// handed back verbatim rather than re-encoded.
type Result struct {
	Raw         []byte
	Payload     json.RawMessage
	EventStream bool
}

// ToolCallParams is the params payload of a tools/call request.
type ToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Bridge turns one logical call into one correctly-addressed JSON-RPC
// request against the upstream RPC endpoint. It ensures a session exists
// before every call and invalidates it after any failure, so the next call
// starts from a fresh handshake.
type Bridge struct {
	endpoint string
	client   *http.Client
	sessions *SessionManager
	logger   *slog.Logger
}

// NewBridge creates a bridge for the given RPC endpoint. The HTTP client is
// injectable for tests; sessions must be the manager guarding this endpoint.
func NewBridge(endpoint string, client *http.Client, sessions *SessionManager, logger *slog.Logger) *Bridge {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Bridge{
		endpoint: endpoint,
		client:   client,
		sessions: sessions,
		logger:   logger,
	}
}

// Sessions exposes the session manager, mainly for observability.
func (b *Bridge) Sessions() *SessionManager {
	return b.sessions
}

// Call sends one JSON-RPC request upstream and returns the normalized
// result. Method names are forwarded as-is; no allowlist is applied. On any
// transport failure the session is invalidated and an *RPCCallError is
// returned — retry is the caller's responsibility.
func (b *Bridge) Call(ctx context.Context, method string, params any) (*Result, error) {
	sessionID, err := b.sessions.EnsureSession(ctx)
	if err != nil {
		return nil, &RPCCallError{
			Message: fmt.Sprintf("session unavailable: %v", err),
			Err:     &SessionInitError{Err: err},
		}
	}

	envelope := jsonrpc.NewRequest(method, params)
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, &RPCCallError{Message: fmt.Sprintf("failed to marshal request: %v", err), Err: err}
	}

	b.logger.Debug("upstream call",
		"method", method,
		"request_id", envelope.ID,
		"session_id", sessionID,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &RPCCallError{Message: fmt.Sprintf("failed to create request: %v", err), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	req.Header.Set(sessionHeader, sessionID)

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		b.sessions.Invalidate()
		b.logger.Error("upstream call failed", "method", method, "error", err)
		return nil, &RPCCallError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		b.sessions.Invalidate()
		return nil, &RPCCallError{Message: fmt.Sprintf("failed to read response: %v", err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b.sessions.Invalidate()
		b.logger.Error("upstream call failed",
			"method", method,
			"status", resp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, &RPCCallError{
			Status:  resp.StatusCode,
			Body:    string(body),
			Message: fmt.Sprintf("upstream returned status %d", resp.StatusCode),
		}
	}

	b.logger.Debug("upstream call succeeded",
		"method", method,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"bytes", len(body),
	)

	result := normalize(body)

	// Protocol-level errors ride inside a 2xx body. They are still passed
	// through to the caller untouched, but worth a log line.
	if !result.EventStream {
		if parsed, err := jsonrpc.ParseResponse(result.Payload); err == nil && parsed.IsError() {
			b.logger.Warn("upstream returned rpc error",
				"method", method,
				"code", parsed.Error.Code,
				"message", parsed.Error.Message,
			)
		}
	}

	return result, nil
}

// CallTool wraps a tools/call request for the named tool. Arguments default
// to an empty object.
func (b *Bridge) CallTool(ctx context.Context, name string, args map[string]any) (*Result, error) {
	if args == nil {
		args = map[string]any{}
	}
	return b.Call(ctx, "tools/call", ToolCallParams{Name: name, Arguments: args})
}

// ListTools wraps a tools/list request.
func (b *Bridge) ListTools(ctx context.Context) (*Result, error) {
	return b.Call(ctx, "tools/list", map[string]any{})
}

// normalize interprets the response body format. Event-stream framed bodies
// are passed through untouched, with the JSON payload extracted beside them
// when possible; everything else is treated as a JSON value and returned
// as-is.
func normalize(body []byte) *Result {
	if jsonrpc.IsEventStream(body) {
		res := &Result{Raw: body, EventStream: true}
		if data, ok := jsonrpc.ExtractEventData(body); ok {
			res.Payload = data
		}
		return res
	}
	return &Result{Raw: body, Payload: json.RawMessage(body)}
}
