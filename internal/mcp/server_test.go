package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opioid-rotation-mcp-server/internal/domain"
	"github.com/opioid-rotation-mcp-server/internal/feedback"
	"github.com/opioid-rotation-mcp-server/internal/health"
	"github.com/opioid-rotation-mcp-server/internal/mcp/resources"
	"github.com/opioid-rotation-mcp-server/internal/metrics"
	"github.com/opioid-rotation-mcp-server/internal/service"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger, _ := test.NewNullLogger()

	store, err := feedback.NewSQLiteStore(filepath.Join(t.TempDir(), "feedback.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	checker := health.NewChecker(health.Config{Version: "test", Timeout: time.Second}, logger)
	checker.Register(health.TablesCheck{})

	server, err := NewServer(Options{
		Calculator: service.NewCalculatorService(logger, nil, domain.CalculatorConfig{
			DefaultAPAPPerTabletMg:   325,
			DefaultCrossTolerancePct: 25,
		}),
		FeedbackStore: store,
		Health:        checker,
		Metrics:       metrics.New(),
		Logger:        logger,
	})
	require.NoError(t, err)
	return server
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNewServer(t *testing.T) {
	server := newTestServer(t)

	assert.NotNil(t, server.MCPServer())
	assert.Len(t, server.registry.GetRegisteredToolsInfo(), 10)
	assert.Len(t, server.resources.ListResources(), 3)
	assert.Len(t, server.prompts.ListPrompts(), 2)
}

func TestNewServer_RequiresCalculator(t *testing.T) {
	_, err := NewServer(Options{})
	assert.Error(t, err)
}

func TestCallTool_Success(t *testing.T) {
	server := newTestServer(t)

	res := server.callTool(context.Background(), "rotate_opioid", map[string]any{
		"ome":    90.0,
		"target": "hydromorphone",
		"route":  "oral",
	})
	require.False(t, res.IsError)

	var body struct {
		Rotation domain.RotateResponse `json:"rotation"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &body))
	require.NotNil(t, body.Rotation.Conversion.Range)
	assert.Equal(t, 15.2, body.Rotation.Conversion.Range.Low)
	assert.Equal(t, 18.6, body.Rotation.Conversion.Range.High)
	assert.NotEmpty(t, body.Rotation.Conversion.Notes)
}

func TestCallTool_ValidationErrorIsInBand(t *testing.T) {
	server := newTestServer(t)

	res := server.callTool(context.Background(), "rotate_opioid", map[string]any{
		"ome":    90.0,
		"target": "fentanyl",
		"route":  "oral",
	})
	require.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), `"code":-32602`)
	assert.Contains(t, textOf(t, res), `"field":"route"`)
}

func TestCallTool_UnknownTool(t *testing.T) {
	server := newTestServer(t)

	res := server.callTool(context.Background(), "titrate_infusion", nil)
	require.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "Tool not found")
}

func TestReadResource(t *testing.T) {
	server := newTestServer(t)

	for _, uri := range []string{resources.FactorsURI, resources.EquianalgesicURI, resources.HealthURI} {
		t.Run(uri, func(t *testing.T) {
			res, err := server.readResource(context.Background(), uri)
			require.NoError(t, err)
			require.Len(t, res.Contents, 1)
			assert.Equal(t, uri, res.Contents[0].URI)
			assert.Equal(t, "application/json", res.Contents[0].MIMEType)
			assert.True(t, json.Valid([]byte(res.Contents[0].Text)))
		})
	}

	_, err := server.readResource(context.Background(), "opioid://missing")
	assert.Error(t, err)
}

func TestGetPrompt(t *testing.T) {
	server := newTestServer(t)

	res, err := server.getPrompt(context.Background(), "opioid_rotation_review", map[string]string{
		"home_regimen": "morphine 15 mg PO q4h",
		"target":       "oxycodone PO",
	})
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	text, ok := res.Messages[0].Content.(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "morphine 15 mg PO q4h")

	_, err = server.getPrompt(context.Background(), "opioid_rotation_review", nil)
	assert.Error(t, err)
}

func TestToJSONSchema(t *testing.T) {
	schema, err := toJSONSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"ome": map[string]interface{}{"type": "number", "description": "Total daily OME"},
		},
		"required": []string{"ome"},
	})
	require.NoError(t, err)

	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, []string{"ome"}, schema.Required)
	require.Contains(t, schema.Properties, "ome")
	assert.Equal(t, "number", schema.Properties["ome"].Type)
}

func TestRun_UnsupportedTransport(t *testing.T) {
	server := newTestServer(t)
	assert.ErrorContains(t, server.Run(context.Background(), "websocket", "", 0), "unsupported transport")
}

func TestRun_HTTPStopsOnCancel(t *testing.T) {
	server := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- server.Run(ctx, TransportHTTP, "127.0.0.1", 0) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("HTTP transport did not stop")
	}
}

func TestCallTool_RecordsMetrics(t *testing.T) {
	server := newTestServer(t)

	server.callTool(context.Background(), "reference_tables", nil)
	server.callTool(context.Background(), "rotate_opioid", map[string]any{"ome": 90, "target": "fentanyl", "route": "oral"})

	assert.Equal(t, 1.0, testutil.ToFloat64(server.metrics.ToolCalls.WithLabelValues("reference_tables", metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(server.metrics.ToolCalls.WithLabelValues("rotate_opioid", metrics.OutcomeError)))
}

func connectClient(t *testing.T, server *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ss, err := server.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func TestClientSession_IncompleteRegimenRowIsSkipped(t *testing.T) {
	cs := connectClient(t, newTestServer(t))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "calculate_home_ome",
		Arguments: map[string]any{
			"medications": []any{
				map[string]any{"drug": "morphine", "route": "oral", "dose": 15, "freq_hours": 4},
				map[string]any{"drug": "oxycodone", "route": "oral"},
			},
		},
	})
	require.NoError(t, err)
	require.False(t, res.IsError, textOf(t, res))

	var body struct {
		HomeRegimen struct {
			TotalOME float64 `json:"total_ome"`
		} `json:"home_regimen"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &body))
	assert.Equal(t, 90.0, body.HomeRegimen.TotalOME)
}

func TestClientSession_PRNTableWithoutFrequency(t *testing.T) {
	cs := connectClient(t, newTestServer(t))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "prn_table",
		Arguments: map[string]any{
			"ome": 90,
			"selections": []any{
				map[string]any{"severity": "moderate", "drug": "oxycodone", "route": "oral"},
			},
		},
	})
	require.NoError(t, err)
	require.False(t, res.IsError, textOf(t, res))

	var body struct {
		PRNTable domain.PRNTableResponse `json:"prn_table"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &body))
	require.Len(t, body.PRNTable.Suggestions, 1)
	assert.Equal(t, "Select PRN frequency", body.PRNTable.Suggestions[0].Text)
}
