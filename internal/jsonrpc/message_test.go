package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewRequest_BuildsEnvelope(t *testing.T) {
	req := NewRequest("tools/call", map[string]any{"name": "create_task"})

	assert.Equal(t, "2.0", req.JSONRPC)
	assert.Equal(t, "tools/call", req.Method)
	assert.NotZero(t, req.ID)

	params, ok := req.Params.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "create_task", params["name"])
}

func TestNewRequest_NilParamsBecomesEmptyObject(t *testing.T) {
	req := NewRequest("tools/list", nil)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"params":{}`)
}

func TestNextID_UniquePerProcess(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 10000; i++ {
		id := NextID()
		assert.False(t, seen[id], "duplicate request id: %d", id)
		seen[id] = true
	}
}

func TestNextID_Monotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := NextID()
		b := NextID()
		assert.Greater(t, b, a, "ids must increase monotonically")
	})
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		expectError bool
		checkResult func(t *testing.T, resp *Response)
	}{
		{
			name: "result response",
			body: `{"jsonrpc":"2.0","id":1,"result":{"tools":[]}}`,
			checkResult: func(t *testing.T, resp *Response) {
				assert.False(t, resp.IsError())
				assert.JSONEq(t, `{"tools":[]}`, string(resp.Result))
			},
		},
		{
			name: "error response",
			body: `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`,
			checkResult: func(t *testing.T, resp *Response) {
				assert.True(t, resp.IsError())
				assert.Equal(t, -32601, resp.Error.Code)
				assert.Contains(t, resp.Error.Error(), "method not found")
			},
		},
		{
			name:        "wrong version",
			body:        `{"jsonrpc":"1.0","id":1,"result":{}}`,
			expectError: true,
		},
		{
			name:        "not JSON",
			body:        `event: message`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponse([]byte(tt.body))
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.checkResult(t, resp)
		})
	}
}
