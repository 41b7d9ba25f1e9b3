package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskbridge/mcp-rest-bridge/internal/upstream"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "mcp-rest-bridge",
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	res, err := s.bridge.Call(r.Context(), "tools/list", map[string]any{})
	s.writeResult(w, res, err)
}

func (s *Server) handleWorkspaceHierarchy(w http.ResponseWriter, r *http.Request) {
	res, err := s.bridge.CallTool(r.Context(), "get_workspace_hierarchy", nil)
	s.writeResult(w, res, err)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	args, ok := s.decodeArguments(w, r)
	if !ok {
		return
	}
	res, err := s.bridge.CallTool(r.Context(), "create_task", args)
	s.writeResult(w, res, err)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	args := map[string]any{"task_id": chi.URLParam(r, "taskID")}
	res, err := s.bridge.CallTool(r.Context(), "get_task", args)
	s.writeResult(w, res, err)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	args, ok := s.decodeArguments(w, r)
	if !ok {
		return
	}
	args["task_id"] = chi.URLParam(r, "taskID")
	res, err := s.bridge.CallTool(r.Context(), "update_task", args)
	s.writeResult(w, res, err)
}

func (s *Server) handleSearchTasks(w http.ResponseWriter, r *http.Request) {
	args, ok := s.decodeArguments(w, r)
	if !ok {
		return
	}
	res, err := s.bridge.CallTool(r.Context(), "get_workspace_tasks", args)
	s.writeResult(w, res, err)
}

func (s *Server) handleSearchDocuments(w http.ResponseWriter, r *http.Request) {
	args := map[string]any{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			args[key] = values[0]
		}
	}
	res, err := s.bridge.CallTool(r.Context(), "search_documents", args)
	s.writeResult(w, res, err)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	args, ok := s.decodeArguments(w, r)
	if !ok {
		return
	}
	res, err := s.bridge.CallTool(r.Context(), "create_document", args)
	s.writeResult(w, res, err)
}

func (s *Server) handleDocumentPages(w http.ResponseWriter, r *http.Request) {
	args := map[string]any{"document_id": chi.URLParam(r, "docID")}
	res, err := s.bridge.CallTool(r.Context(), "get_document_pages", args)
	s.writeResult(w, res, err)
}

// handleGenericCall is the passthrough route: any tool name is forwarded,
// nothing is validated against a known set.
func (s *Server) handleGenericCall(w http.ResponseWriter, r *http.Request) {
	args, ok := s.decodeArguments(w, r)
	if !ok {
		return
	}
	res, err := s.bridge.CallTool(r.Context(), chi.URLParam(r, "toolName"), args)
	s.writeResult(w, res, err)
}

// decodeArguments reads the request body as a JSON object of tool
// arguments. An empty body means no arguments. A malformed body is the
// caller's fault and gets a 400 rather than a bridge round-trip.
func (s *Server) decodeArguments(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read request body: %w", err))
		return nil, false
	}
	if len(body) == 0 {
		return map[string]any{}, true
	}

	var args map[string]any
	if err := json.Unmarshal(body, &args); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("request body must be a JSON object: %w", err))
		return nil, false
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, true
}

// writeResult writes the bridge outcome: the upstream payload on success,
// a flat {"error": message} with status 500 on any bridge failure.
// Event-stream framed bodies are passed through byte-for-byte.
func (s *Server) writeResult(w http.ResponseWriter, res *upstream.Result, err error) {
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	if res.EventStream {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write(res.Raw)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(res.Payload)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Error("request failed", "status", status, "error", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
