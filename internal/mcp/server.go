// Package mcp exposes the opioid calculator over the Model Context Protocol.
// Tools, resources and prompts registered with the internal managers are
// bridged onto the go-sdk server, which runs over stdio or streamable HTTP.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/opioid-rotation-mcp-server/internal/domain"
	"github.com/opioid-rotation-mcp-server/internal/feedback"
	"github.com/opioid-rotation-mcp-server/internal/health"
	"github.com/opioid-rotation-mcp-server/internal/mcp/prompts"
	"github.com/opioid-rotation-mcp-server/internal/mcp/protocol"
	"github.com/opioid-rotation-mcp-server/internal/mcp/resources"
	"github.com/opioid-rotation-mcp-server/internal/mcp/tools"
	"github.com/opioid-rotation-mcp-server/internal/metrics"
)

// Transport types.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	Name    string
	Version string

	Calculator    domain.Calculator
	FeedbackStore feedback.Store  // optional; feedback tools are omitted when nil
	Health        *health.Checker  // optional; opioid://health is omitted when nil
	Metrics       *metrics.Metrics // optional
	Logger        *logrus.Logger
}

// Server is the opioid calculator MCP server.
type Server struct {
	logger    *logrus.Logger
	metrics   *metrics.Metrics
	mcpServer *mcp.Server
	registry  *tools.ToolRegistry
	resources *resources.ResourceManager
	prompts   *prompts.PromptManager
}

// NewServer builds the tool, resource and prompt registries and registers
// every entry with the MCP SDK.
func NewServer(opts Options) (*Server, error) {
	if opts.Calculator == nil {
		return nil, errors.New("calculator is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	if opts.Name == "" {
		opts.Name = "opioid-rotation-mcp-server"
	}
	if opts.Version == "" {
		opts.Version = "v0.1.0"
	}

	router := protocol.NewMessageRouter(logger)
	registry := tools.NewToolRegistry(logger, router)
	if err := registry.RegisterAllTools(opts.Calculator, opts.FeedbackStore); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	if err := registry.ValidateAllTools(); err != nil {
		return nil, fmt.Errorf("tool validation failed: %w", err)
	}

	resourceMgr := resources.NewResourceManager(logger)
	resourceMgr.RegisterProvider(resources.NewFactorsProvider(opts.Calculator))
	resourceMgr.RegisterProvider(resources.EquianalgesicProvider{})
	if opts.Health != nil {
		resourceMgr.RegisterProvider(resources.NewHealthProvider(opts.Health))
	}

	promptMgr := prompts.NewPromptManager(logger)
	promptMgr.RegisterTemplate(prompts.RotationReviewPrompt{})
	promptMgr.RegisterTemplate(prompts.PainPlanPrompt{})

	s := &Server{
		logger:    logger,
		metrics:   opts.Metrics,
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: opts.Name, Version: opts.Version}, nil),
		registry:  registry,
		resources: resourceMgr,
		prompts:   promptMgr,
	}

	if err := s.registerMCPTools(); err != nil {
		return nil, fmt.Errorf("failed to register MCP tools: %w", err)
	}
	s.registerMCPResources()
	s.registerMCPPrompts()

	logger.WithFields(logrus.Fields{
		"name":    opts.Name,
		"version": opts.Version,
	}).Info("MCP server initialized")
	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

func (s *Server) registerMCPTools() error {
	toolsInfo := s.registry.GetRegisteredToolsInfo()

	for _, info := range toolsInfo {
		schema, err := toJSONSchema(info.InputSchema)
		if err != nil {
			return fmt.Errorf("tool %s: %w", info.Name, err)
		}

		name := info.Name
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        name,
			Description: info.Description,
			InputSchema: schema,
		}, func(ctx context.Context, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
			return s.callTool(ctx, name, args), nil, nil
		})

		s.logger.WithField("tool_name", name).Debug("Registered MCP tool")
	}

	s.logger.WithField("tool_count", len(toolsInfo)).Info("Registered tools with MCP SDK")
	return nil
}

// callTool runs a registered tool and converts its response into tool
// content. Tool failures are reported in-band with IsError set.
func (s *Server) callTool(ctx context.Context, name string, args map[string]any) *mcp.CallToolResult {
	var params interface{}
	if args != nil {
		params = args
	}

	start := time.Now()
	resp := s.registry.ExecuteTool(ctx, name, params)
	elapsed := time.Since(start)
	s.metrics.ObserveTool(name, resp.Error != nil, elapsed)
	log := s.logger.WithFields(logrus.Fields{
		"tool":     name,
		"duration": elapsed.String(),
	})

	if resp.Error != nil {
		log.WithFields(logrus.Fields{
			"code":  resp.Error.Code,
			"error": resp.Error.Message,
		}).Warn("Tool call failed")
		return errorResult(resp.Error)
	}

	text, err := json.MarshalIndent(resp.Result, "", "  ")
	if err != nil {
		log.WithError(err).Error("Failed to encode tool result")
		return errorResult(&protocol.RPCError{Code: protocol.InternalError, Message: "Failed to encode tool result", Data: err.Error()})
	}

	log.Debug("Tool call completed")
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(text)}},
	}
}

func errorResult(rpcErr *protocol.RPCError) *mcp.CallToolResult {
	body, err := json.Marshal(map[string]interface{}{"error": rpcErr})
	if err != nil {
		body = []byte(rpcErr.Error())
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
	}
}

func (s *Server) registerMCPResources() {
	for _, info := range s.resources.ListResources() {
		uri := info.URI
		s.mcpServer.AddResource(&mcp.Resource{
			URI:         uri,
			Name:        info.Name,
			Description: info.Description,
			MIMEType:    info.MimeType,
		}, func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return s.readResource(ctx, uri)
		})
		s.logger.WithField("uri", uri).Debug("Registered MCP resource")
	}
}

func (s *Server) readResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	content, err := s.resources.GetResource(ctx, uri)
	if err != nil {
		if errors.Is(err, resources.ErrResourceNotFound) {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      content.URI,
			MIMEType: content.MimeType,
			Text:     content.Text,
		}},
	}, nil
}

func (s *Server) registerMCPPrompts() {
	for _, info := range s.prompts.ListPrompts() {
		args := make([]*mcp.PromptArgument, 0, len(info.Arguments))
		for _, a := range info.Arguments {
			args = append(args, &mcp.PromptArgument{Name: a.Name, Description: a.Description, Required: a.Required})
		}

		name := info.Name
		s.mcpServer.AddPrompt(&mcp.Prompt{
			Name:        name,
			Description: info.Description,
			Arguments:   args,
		}, func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			var arguments map[string]string
			if req != nil && req.Params != nil {
				arguments = req.Params.Arguments
			}
			return s.getPrompt(ctx, name, arguments)
		})
	}
}

func (s *Server) getPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	rendered, err := s.prompts.GetPrompt(ctx, name, args)
	if err != nil {
		return nil, err
	}
	return &mcp.GetPromptResult{
		Description: rendered.Description,
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: rendered.Content},
		}},
	}, nil
}

// toJSONSchema converts a tool's schema map into the SDK schema type.
func toJSONSchema(raw map[string]interface{}) (*jsonschema.Schema, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input schema: %w", err)
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to decode input schema: %w", err)
	}
	return &schema, nil
}

// HTTPHandler serves the MCP streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

// Run serves MCP on the given transport until ctx is cancelled or the
// client disconnects.
func (s *Server) Run(ctx context.Context, transport string, host string, port int) error {
	switch transport {
	case "", TransportStdio:
		s.logger.WithField("transport_type", TransportStdio).Info("Starting MCP server")
		if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server failed: %w", err)
		}
		return nil
	case TransportHTTP:
		return s.runHTTP(ctx, net.JoinHostPort(host, strconv.Itoa(port)))
	default:
		return fmt.Errorf("unsupported transport %q", transport)
	}
}

func (s *Server) runHTTP(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", s.HTTPHandler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithFields(logrus.Fields{
			"transport_type": TransportHTTP,
			"addr":           addr,
		}).Info("Starting MCP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("MCP HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("Shutting down MCP HTTP server")
	return srv.Shutdown(shutdownCtx)
}
