package gateway

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/taskbridge/mcp-rest-bridge/internal/upstream"
)

// Caller is the slice of the RPC bridge the gateway depends on.
type Caller interface {
	// Call forwards an arbitrary JSON-RPC method upstream.
	Call(ctx context.Context, method string, params any) (*upstream.Result, error)

	// CallTool forwards a tools/call request for the named tool.
	CallTool(ctx context.Context, name string, args map[string]any) (*upstream.Result, error)
}

// Server is the HTTP boundary. Every non-/health route delegates to the
// bridge and reports bridge failures uniformly as a 500 with an error field.
type Server struct {
	bridge Caller
	logger *slog.Logger
}

// NewServer creates the gateway server around a bridge.
func NewServer(bridge Caller, logger *slog.Logger) *Server {
	return &Server{
		bridge: bridge,
		logger: logger,
	}
}

// Routes builds the gateway's route table.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)

	r.Get("/tools", s.handleListTools)
	r.Get("/workspace/hierarchy", s.handleWorkspaceHierarchy)

	r.Post("/task", s.handleCreateTask)
	r.Get("/task/{taskID}", s.handleGetTask)
	r.Put("/task/{taskID}", s.handleUpdateTask)
	r.Post("/tasks/search", s.handleSearchTasks)

	r.Get("/documents", s.handleSearchDocuments)
	r.Post("/document", s.handleCreateDocument)
	r.Get("/document/{docID}/pages", s.handleDocumentPages)

	r.Post("/call/{toolName}", s.handleGenericCall)

	return r
}
