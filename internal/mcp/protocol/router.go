package protocol

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// ToolHandler defines the interface for MCP tool handlers
type ToolHandler interface {
	HandleTool(ctx context.Context, req *JSONRPC2Request) *JSONRPC2Response
	GetToolInfo() ToolInfo
	ValidateParams(params interface{}) error
}

// ToolInfo contains metadata about a tool
type ToolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema,omitempty"`
}

// ResourceInfo contains metadata about a resource
type ResourceInfo struct {
	URI         string `json:"uri"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// MessageRouter dispatches tool calls by name.
type MessageRouter struct {
	logger *logrus.Logger
	tools  map[string]ToolHandler
	mu     sync.RWMutex
}

func NewMessageRouter(logger *logrus.Logger) *MessageRouter {
	return &MessageRouter{
		logger: logger,
		tools:  make(map[string]ToolHandler),
	}
}

// RegisterToolHandler registers a tool handler
func (mr *MessageRouter) RegisterToolHandler(name string, handler ToolHandler) {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	mr.tools[name] = handler
	mr.logger.WithField("tool_name", name).Debug("Registered tool handler")
}

// GetToolHandler retrieves a specific tool handler
func (mr *MessageRouter) GetToolHandler(name string) (ToolHandler, bool) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	handler, ok := mr.tools[name]
	return handler, ok
}

// GetToolHandlers returns a copy of the registered handlers.
func (mr *MessageRouter) GetToolHandlers() map[string]ToolHandler {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	handlers := make(map[string]ToolHandler, len(mr.tools))
	for name, h := range mr.tools {
		handlers[name] = h
	}
	return handlers
}

// ToolNames returns the registered tool names, sorted.
func (mr *MessageRouter) ToolNames() []string {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	names := make([]string, 0, len(mr.tools))
	for name := range mr.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CallTool runs the named tool. The response always carries JSONRPC and ID.
func (mr *MessageRouter) CallTool(ctx context.Context, name string, id interface{}, params interface{}) *JSONRPC2Response {
	handler, ok := mr.GetToolHandler(name)
	if !ok {
		return NewErrorResponse(id, MethodNotFound, "Tool not found", fmt.Sprintf("no tool named %q", name))
	}

	mr.logger.WithField("tool", name).Debug("Routing tool call")
	resp := handler.HandleTool(ctx, &JSONRPC2Request{JSONRPC: "2.0", Method: name, Params: params, ID: id})
	if resp == nil {
		return NewErrorResponse(id, InternalError, "Tool returned no response", nil)
	}
	resp.JSONRPC = "2.0"
	resp.ID = id
	return resp
}
