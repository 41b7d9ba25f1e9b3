package upstream

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// capturedRequest is one JSON-RPC envelope the fake upstream received.
type capturedRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`

	sessionHeader string
}

// fakeUpstream is an httptest-backed MCP tool server. Behavior is adjusted
// per test by mutating the public fields before issuing calls.
type fakeUpstream struct {
	t *testing.T

	mu       sync.Mutex
	requests []capturedRequest

	// initialize behavior
	initHeader      string // header name carrying the session id, empty for none
	initSessionID   string
	initStatus      int
	initBody        string
	initContentType string

	// behavior for every other method
	callStatus      int
	callBody        string
	callContentType string

	server *httptest.Server
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	f := &fakeUpstream{
		t:          t,
		initStatus: http.StatusOK,
		initBody:   `{"jsonrpc":"2.0","id":1,"result":{"protocolVersion":"2024-11-05"}}`,
		callStatus: http.StatusOK,
		callBody:   `{"jsonrpc":"2.0","id":2,"result":{"content":[]}}`,
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeUpstream) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		f.t.Errorf("fake upstream failed to read body: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	var req capturedRequest
	if err := json.Unmarshal(body, &req); err != nil {
		f.t.Errorf("fake upstream received invalid JSON-RPC: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	req.sessionHeader = r.Header.Get("Mcp-Session-Id")

	f.mu.Lock()
	f.requests = append(f.requests, req)
	initHeader, initSessionID := f.initHeader, f.initSessionID
	initStatus, initBody, initCT := f.initStatus, f.initBody, f.initContentType
	callStatus, callBody, callCT := f.callStatus, f.callBody, f.callContentType
	f.mu.Unlock()

	if req.Method == "initialize" {
		if initHeader != "" {
			w.Header().Set(initHeader, initSessionID)
		}
		if initCT != "" {
			w.Header().Set("Content-Type", initCT)
		} else {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(initStatus)
		io.WriteString(w, initBody)
		return
	}

	if callCT != "" {
		w.Header().Set("Content-Type", callCT)
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(callStatus)
	io.WriteString(w, callBody)
}

func (f *fakeUpstream) url() string {
	return f.server.URL
}

// countMethod returns how many requests for the given method arrived.
func (f *fakeUpstream) countMethod(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, req := range f.requests {
		if req.Method == method {
			n++
		}
	}
	return n
}

// lastRequest returns the most recent request for the given method.
func (f *fakeUpstream) lastRequest(method string) (capturedRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].Method == method {
			return f.requests[i], true
		}
	}
	return capturedRequest{}, false
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
