package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/opioid-rotation-mcp-server/internal/domain"
	"github.com/opioid-rotation-mcp-server/internal/feedback"
	"github.com/opioid-rotation-mcp-server/internal/mcp/protocol"
)

// ToolRegistry manages registration of all MCP tools
type ToolRegistry struct {
	logger *logrus.Logger
	router *protocol.MessageRouter
}

// NewToolRegistry creates a new tool registry
func NewToolRegistry(logger *logrus.Logger, router *protocol.MessageRouter) *ToolRegistry {
	return &ToolRegistry{
		logger: logger,
		router: router,
	}
}

// RegisterAllTools registers the calculator tools and, when store is non-nil,
// the feedback tools.
func (tr *ToolRegistry) RegisterAllTools(calc domain.Calculator, store feedback.Store) error {
	if calc == nil {
		return fmt.Errorf("calculator is required")
	}
	tr.logger.Info("Registering opioid calculator tools")

	handlers := []protocol.ToolHandler{
		NewHomeOMETool(tr.logger, calc),
		NewRotateOpioidTool(tr.logger, calc),
		NewPRNSuggestionTool(tr.logger, calc),
		NewPRNTableTool(tr.logger, calc),
		NewQuickConvertTool(tr.logger, calc),
		NewScheduledRegimenTool(tr.logger, calc),
		NewPainPlanTool(tr.logger, calc),
		NewReferenceTablesTool(tr.logger, calc),
	}
	if store != nil {
		handlers = append(handlers,
			NewSubmitFeedbackTool(tr.logger, store),
			NewListFeedbackTool(tr.logger, store),
		)
	} else {
		tr.logger.Warn("Feedback store not configured; feedback tools disabled")
	}

	for _, h := range handlers {
		tr.router.RegisterToolHandler(h.GetToolInfo().Name, h)
	}

	tr.logger.WithField("tool_count", len(handlers)).Info("Successfully registered all tools")
	return nil
}

// ExecuteTool runs a registered tool by name.
func (tr *ToolRegistry) ExecuteTool(ctx context.Context, name string, params interface{}) *protocol.JSONRPC2Response {
	return tr.router.CallTool(ctx, name, nil, params)
}

// GetRegisteredToolsInfo returns information about all registered tools,
// sorted by name.
func (tr *ToolRegistry) GetRegisteredToolsInfo() []protocol.ToolInfo {
	toolHandlers := tr.router.GetToolHandlers()
	toolsInfo := make([]protocol.ToolInfo, 0, len(toolHandlers))

	for _, handler := range toolHandlers {
		toolsInfo = append(toolsInfo, handler.GetToolInfo())
	}
	sort.Slice(toolsInfo, func(i, j int) bool { return toolsInfo[i].Name < toolsInfo[j].Name })

	return toolsInfo
}

// ValidateAllTools checks each tool declares a name, description and an
// object input schema.
func (tr *ToolRegistry) ValidateAllTools() error {
	tr.logger.Info("Validating all registered tools")

	for name, handler := range tr.router.GetToolHandlers() {
		toolInfo := handler.GetToolInfo()
		switch {
		case toolInfo.Name != name:
			return fmt.Errorf("tool %q registered as %q", toolInfo.Name, name)
		case toolInfo.Description == "":
			return fmt.Errorf("tool %q missing description", name)
		case toolInfo.InputSchema == nil || toolInfo.InputSchema["type"] != "object":
			return fmt.Errorf("tool %q missing object input schema", name)
		}
		tr.logger.WithField("tool", name).Debug("Tool validation completed")
	}

	tr.logger.Info("Tool validation completed")
	return nil
}
