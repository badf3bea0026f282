package tools

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opioid-rotation-mcp-server/internal/domain"
	"github.com/opioid-rotation-mcp-server/internal/feedback"
	"github.com/opioid-rotation-mcp-server/internal/mcp/protocol"
	"github.com/opioid-rotation-mcp-server/internal/service"
	"github.com/opioid-rotation-mcp-server/pkg/opioid"
)

func testLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func newTestCalculator(t *testing.T) domain.Calculator {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return service.NewCalculatorService(logger, nil, domain.CalculatorConfig{
		DefaultAPAPPerTabletMg:   325,
		DefaultCrossTolerancePct: 25,
	})
}

func createTestFeedbackStore(t *testing.T) feedback.Store {
	t.Helper()
	store, err := feedback.NewSQLiteStore(filepath.Join(t.TempDir(), "feedback.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestRegistry(t *testing.T, store feedback.Store) *ToolRegistry {
	t.Helper()
	logger, _ := test.NewNullLogger()
	registry := NewToolRegistry(logger, protocol.NewMessageRouter(logger))
	require.NoError(t, registry.RegisterAllTools(newTestCalculator(t), store))
	return registry
}

func call(t *testing.T, tool protocol.ToolHandler, params interface{}) *protocol.JSONRPC2Response {
	t.Helper()
	resp := tool.HandleTool(context.Background(), &protocol.JSONRPC2Request{
		JSONRPC: "2.0",
		Method:  tool.GetToolInfo().Name,
		Params:  params,
		ID:      1,
	})
	require.NotNil(t, resp)
	return resp
}

func TestToolRegistry_RegisterAllTools(t *testing.T) {
	registry := newTestRegistry(t, createTestFeedbackStore(t))

	var names []string
	for _, info := range registry.GetRegisteredToolsInfo() {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{
		"calculate_home_ome", "list_feedback", "pain_plan", "prn_suggestion", "prn_table",
		"quick_convert", "reference_tables", "rotate_opioid", "scheduled_regimen", "submit_feedback",
	}, names)
	assert.NoError(t, registry.ValidateAllTools())
}

func TestToolRegistry_WithoutStore(t *testing.T) {
	registry := newTestRegistry(t, nil)

	assert.Len(t, registry.GetRegisteredToolsInfo(), 8)
	resp := registry.ExecuteTool(context.Background(), "submit_feedback", map[string]interface{}{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.MethodNotFound, resp.Error.Code)
}

func TestToolRegistry_RequiresCalculator(t *testing.T) {
	logger, _ := test.NewNullLogger()
	registry := NewToolRegistry(logger, protocol.NewMessageRouter(logger))
	assert.Error(t, registry.RegisterAllTools(nil, nil))
}

func TestHomeOMETool_HandleTool(t *testing.T) {
	tool := NewHomeOMETool(testLogger(), newTestCalculator(t))

	resp := call(t, tool, map[string]interface{}{
		"medications": []interface{}{
			map[string]interface{}{"drug": "morphine", "route": "po", "dose": 15, "freq_hours": 4},
			map[string]interface{}{"drug": "percocet", "route": "oral", "dose": 5, "freq_hours": 6, "prn": true, "avg_prn_doses_per_day": 2},
		},
	})
	require.Nil(t, resp.Error)

	res := resp.Result.(map[string]interface{})["home_regimen"].(HomeOMEResult)
	assert.Equal(t, 105.0, res.TotalOME)
	assert.Equal(t, 650.0, res.TotalAPAPMg)
	assert.NotEmpty(t, res.Lines)
	assert.Equal(t, res.Regimen.Lines(), res.Lines)
}

func TestHomeOMETool_ValidationError(t *testing.T) {
	tool := NewHomeOMETool(testLogger(), newTestCalculator(t))

	resp := call(t, tool, map[string]interface{}{
		"medications": []interface{}{
			map[string]interface{}{"drug": "unobtainium", "route": "po", "dose": 5, "freq_hours": 4},
		},
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.InvalidParams, resp.Error.Code)
	ve, ok := resp.Error.Data.(*domain.ValidationError)
	require.True(t, ok)
	assert.Equal(t, "medications[0].drug", ve.Field)

	assert.Error(t, tool.ValidateParams(map[string]interface{}{}))
}

func TestRotateOpioidTool_HandleTool(t *testing.T) {
	tool := NewRotateOpioidTool(testLogger(), newTestCalculator(t))

	resp := call(t, tool, map[string]interface{}{
		"ome":    90,
		"target": "dilaudid",
		"route":  "po",
	})
	require.Nil(t, resp.Error)

	rotation := resp.Result.(map[string]interface{})["rotation"].(*domain.RotateResponse)
	assert.Equal(t, opioid.StatusOK, rotation.Conversion.Status)
	require.NotNil(t, rotation.Conversion.Range)
	assert.Equal(t, opioid.DoseRange{Low: 15.2, High: 18.6}, *rotation.Conversion.Range)
	assert.NotEmpty(t, rotation.Conversion.Notes)
}

func TestRotateOpioidTool_Unsupported(t *testing.T) {
	tool := NewRotateOpioidTool(testLogger(), newTestCalculator(t))

	resp := call(t, tool, map[string]interface{}{"ome": 90, "target": "methadone", "route": "oral"})
	require.Nil(t, resp.Error, "clinical refusals are results, not errors")

	rotation := resp.Result.(map[string]interface{})["rotation"].(*domain.RotateResponse)
	assert.Equal(t, opioid.StatusUnsupported, rotation.Conversion.Status)
}

func TestRotateOpioidTool_BadParams(t *testing.T) {
	tool := NewRotateOpioidTool(testLogger(), newTestCalculator(t))

	resp := call(t, tool, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.InvalidParams, resp.Error.Code)

	resp = call(t, tool, map[string]interface{}{"ome": "ninety", "target": "morphine"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.InvalidParams, resp.Error.Code)
}

func TestPRNSuggestionTool_HandleTool(t *testing.T) {
	tool := NewPRNSuggestionTool(testLogger(), newTestCalculator(t))

	resp := call(t, tool, map[string]interface{}{
		"ome": 300, "severity": "moderate", "drug": "oxycodone", "route": "oral", "freq_hours": 4,
	})
	require.Nil(t, resp.Error)

	prn := resp.Result.(map[string]interface{})["prn"].(*domain.PRNResponse)
	assert.Equal(t, opioid.StatusOK, prn.Suggestion.Status)
	assert.Contains(t, prn.Suggestion.Text, "q4h PRN")
	assert.NotEmpty(t, prn.Suggestion.Trace)
}

func TestPRNTableTool_HandleTool(t *testing.T) {
	tool := NewPRNTableTool(testLogger(), newTestCalculator(t))

	resp := call(t, tool, map[string]interface{}{
		"ome": 300,
		"selections": []interface{}{
			map[string]interface{}{"severity": "moderate", "drug": "oxycodone", "route": "oral", "freq_hours": 4},
			map[string]interface{}{"severity": "breakthrough", "drug": "dilaudid", "route": "iv/sc", "freq_hours": 2},
		},
	})
	require.Nil(t, resp.Error)

	table := resp.Result.(map[string]interface{})["prn_table"].(*domain.PRNTableResponse)
	require.Len(t, table.Suggestions, 2)
	assert.Equal(t, opioid.Moderate, table.Suggestions[0].Severity)
	assert.Equal(t, "HM 0.2–0.4 iv/sc q2h PRN", table.Suggestions[1].Text)
}

func TestQuickConvertTool_HandleTool(t *testing.T) {
	tool := NewQuickConvertTool(testLogger(), newTestCalculator(t))

	resp := call(t, tool, map[string]interface{}{
		"source":            map[string]interface{}{"drug": "morphine", "route": "oral", "dose": 15, "freq_hours": 4},
		"target":            map[string]interface{}{"drug": "hydromorphone", "route": "oral", "freq_hours": 4},
		"include_frequency": true,
	})
	require.Nil(t, resp.Error)

	conversion := resp.Result.(map[string]interface{})["conversion"].(*opioid.QuickResult)
	assert.Equal(t, 90.0, conversion.SourceOME)
	assert.Equal(t, "Hydromorphone 2.5–3.1 mg PO q4h", conversion.Text)
	assert.NotEmpty(t, conversion.Steps)

	assert.Error(t, tool.ValidateParams(map[string]interface{}{"source": map[string]interface{}{"drug": "oxycodone"}}))
}

func TestScheduledRegimenTool_HandleTool(t *testing.T) {
	tool := NewScheduledRegimenTool(testLogger(), newTestCalculator(t))

	resp := call(t, tool, map[string]interface{}{
		"ome": 90, "drug": "hydromorphone", "route": "iv", "freq_hours": 4,
	})
	require.Nil(t, resp.Error)

	scheduled := resp.Result.(map[string]interface{})["scheduled"].(*domain.ScheduledResponse)
	assert.Equal(t, "Hydromorphone 0.6–0.8 mg IV/SC q4h", scheduled.Scheduled.Text)
}

func TestPainPlanTool_HandleTool(t *testing.T) {
	tool := NewPainPlanTool(testLogger(), newTestCalculator(t))

	resp := call(t, tool, map[string]interface{}{
		"ome":       90,
		"scheduled": map[string]interface{}{"drug": "hydromorphone", "route": "iv", "freq_hours": 4},
		"prn": []interface{}{
			map[string]interface{}{"severity": "moderate", "drug": "oxycodone", "route": "oral", "freq_hours": 4},
		},
		"adjuncts": map[string]interface{}{"neuropathic": true},
	})
	require.Nil(t, resp.Error)

	plan := resp.Result.(map[string]interface{})["plan"].(*domain.PlanResponse)
	assert.Contains(t, plan.Text, "# Pain Management\nPlan:\n")
	assert.Contains(t, plan.Text, "Gabapentin 100–300 mg PO q8–12h")
}

func TestReferenceTablesTool_HandleTool(t *testing.T) {
	tool := NewReferenceTablesTool(testLogger(), newTestCalculator(t))

	resp := call(t, tool, nil)
	require.Nil(t, resp.Error)

	ref := resp.Result.(map[string]interface{})["reference"].(opioid.Reference)
	assert.Len(t, ref.Drugs, len(opioid.Drugs()))
	assert.NotEmpty(t, ref.Equianalgesic)
	assert.NoError(t, tool.ValidateParams(nil))
}

func TestAllTools_DeclareObjectSchemas(t *testing.T) {
	registry := newTestRegistry(t, createTestFeedbackStore(t))

	for _, info := range registry.GetRegisteredToolsInfo() {
		t.Run(info.Name, func(t *testing.T) {
			assert.Equal(t, "object", info.InputSchema["type"])
			assert.NotEmpty(t, info.Description)
			_, ok := info.InputSchema["properties"].(map[string]interface{})
			assert.True(t, ok)
		})
	}
}
