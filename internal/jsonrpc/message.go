package jsonrpc

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

// Version is the JSON-RPC protocol version spoken with the upstream.
const Version = "2.0"

// Request represents a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// Response represents a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject contains details about a JSON-RPC error.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *ErrorObject) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// requestID is seeded with wall-clock millis so ids stay unique for the
// life of the process and roughly sortable across restarts.
var requestID atomic.Int64

func init() {
	requestID.Store(time.Now().UnixMilli())
}

// NextID returns a process-unique request identifier.
func NextID() int64 {
	return requestID.Add(1)
}

// NewRequest creates a request envelope with a fresh unique id. A nil params
// value is normalized to an empty object so the upstream always sees a
// well-formed params member.
func NewRequest(method string, params any) *Request {
	if params == nil {
		params = map[string]any{}
	}
	return &Request{
		JSONRPC: Version,
		ID:      NextID(),
		Method:  method,
		Params:  params,
	}
}

// ParseResponse parses a plain JSON response body into a Response envelope.
func ParseResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("invalid JSON-RPC response: %w", err)
	}
	if resp.JSONRPC != Version {
		return nil, fmt.Errorf("unsupported JSON-RPC version: %q", resp.JSONRPC)
	}
	return &resp, nil
}

// IsError returns true if the response carries an error object.
func (r *Response) IsError() bool {
	return r.Error != nil
}
