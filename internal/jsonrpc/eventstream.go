package jsonrpc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
)

// eventStreamMarker is the literal that identifies an event-stream-framed
// response body. The upstream is free to answer either a bare JSON document
// or an SSE blob wrapping one; detection is by marker only.
const eventStreamMarker = "event: message"

// IsEventStream reports whether body looks like an event-stream-framed
// response rather than a plain JSON document.
func IsEventStream(body []byte) bool {
	return bytes.Contains(body, []byte(eventStreamMarker))
}

// ExtractEventData makes a best-effort attempt to pull the JSON payload out
// of an event-stream-framed body by joining the data: lines of the first
// event that yields valid JSON. The input is never modified; callers must
// keep passing the raw body through when extraction fails.
func ExtractEventData(body []byte) (json.RawMessage, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data []string
	flush := func() (json.RawMessage, bool) {
		if len(data) == 0 {
			return nil, false
		}
		joined := strings.Join(data, "\n")
		data = nil
		if json.Valid([]byte(joined)) {
			return json.RawMessage(joined), true
		}
		return nil, false
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data:") {
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			continue
		}
		// blank line terminates an event
		if strings.TrimSpace(line) == "" {
			if payload, ok := flush(); ok {
				return payload, true
			}
		}
	}

	return flush()
}
