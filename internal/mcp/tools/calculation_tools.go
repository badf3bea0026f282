package tools

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opioid-rotation-mcp-server/internal/domain"
	"github.com/opioid-rotation-mcp-server/internal/mcp/protocol"
	"github.com/opioid-rotation-mcp-server/pkg/opioid"
)

// =============================================================================
// Home Regimen Tool
// =============================================================================

// HomeOMETool implements the calculate_home_ome MCP tool
type HomeOMETool struct {
	logger *logrus.Logger
	calc   domain.Calculator
}

// HomeOMEResult is the calculate_home_ome result
type HomeOMEResult struct {
	TotalOME    float64                `json:"total_ome"`
	TotalAPAPMg float64                `json:"total_apap_mg"`
	Lines       []string               `json:"lines"`
	Regimen     *opioid.RegimenSummary `json:"regimen"`
}

func NewHomeOMETool(logger *logrus.Logger, calc domain.Calculator) *HomeOMETool {
	return &HomeOMETool{logger: logger, calc: calc}
}

func (t *HomeOMETool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "calculate_home_ome",
		Description: "Sum a home opioid regimen into total daily oral morphine equivalents (OME) and daily acetaminophen exposure.",
		InputSchema: objectSchema(map[string]interface{}{
			"medications":                medicationsSchema(),
			"default_apap_per_tablet_mg": numberSchema("APAP per tablet assumed when not entered"),
		}, "medications"),
	}
}

func (t *HomeOMETool) ValidateParams(params interface{}) error {
	var p domain.HomeRegimenRequest
	if err := ParseParams(params, &p); err != nil {
		return err
	}
	if len(p.Medications) == 0 {
		return fmt.Errorf("medications is required")
	}
	return nil
}

func (t *HomeOMETool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params domain.HomeRegimenRequest
	if err := ParseParams(req.Params, &params); err != nil {
		return invalidParamsError("Invalid parameters", err.Error())
	}

	summary, err := t.calc.HomeRegimen(ctx, &params)
	if err != nil {
		return calculationError(err)
	}

	return result("home_regimen", HomeOMEResult{
		TotalOME:    summary.TotalOME,
		TotalAPAPMg: summary.TotalAPAPMg,
		Lines:       summary.Lines(),
		Regimen:     summary,
	})
}

// =============================================================================
// Rotation Tool
// =============================================================================

// RotateOpioidTool implements the rotate_opioid MCP tool
type RotateOpioidTool struct {
	logger *logrus.Logger
	calc   domain.Calculator
}

func NewRotateOpioidTool(logger *logrus.Logger, calc domain.Calculator) *RotateOpioidTool {
	return &RotateOpioidTool{logger: logger, calc: calc}
}

func (t *RotateOpioidTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name: "rotate_opioid",
		Description: "Convert the home OME into a daily dose range of a target opioid and route, " +
			"after cross-tolerance reduction. Fentanyl targets return a patch range; methadone and buprenorphine are refused.",
		InputSchema: objectSchema(omeSourceProperties(map[string]interface{}{
			"target":              drugSchema("Target opioid"),
			"route":               routeSchema(),
			"cross_tolerance_pct": numberSchema("Cross-tolerance reduction percent, 0-95 (default 25)"),
			"frail":               boolSchema("Use the conservative frail/elderly range"),
		}), "target"),
	}
}

func (t *RotateOpioidTool) ValidateParams(params interface{}) error {
	var p domain.RotateRequest
	if err := ParseParams(params, &p); err != nil {
		return err
	}
	if p.Target == "" {
		return fmt.Errorf("target is required")
	}
	return nil
}

func (t *RotateOpioidTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params domain.RotateRequest
	if err := ParseParams(req.Params, &params); err != nil {
		return invalidParamsError("Invalid parameters", err.Error())
	}

	resp, err := t.calc.Rotate(ctx, &params)
	if err != nil {
		return calculationError(err)
	}
	return result("rotation", resp)
}

// =============================================================================
// PRN Tools
// =============================================================================

// PRNSuggestionTool implements the prn_suggestion MCP tool
type PRNSuggestionTool struct {
	logger *logrus.Logger
	calc   domain.Calculator
}

func NewPRNSuggestionTool(logger *logrus.Logger, calc domain.Calculator) *PRNSuggestionTool {
	return &PRNSuggestionTool{logger: logger, calc: calc}
}

func (t *PRNSuggestionTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "prn_suggestion",
		Description: "Size one as-needed (PRN) opioid dose for a pain severity tier from the home OME, or from fixed starting doses for opioid-naive patients.",
		InputSchema: objectSchema(omeSourceProperties(prnOptionProperties(map[string]interface{}{
			"severity":   severitySchema(),
			"drug":       drugSchema("PRN opioid"),
			"route":      routeSchema(),
			"freq_hours": numberSchema("PRN interval in hours, clamped to 2-12"),
		})), "severity", "drug", "route", "freq_hours"),
	}
}

func (t *PRNSuggestionTool) ValidateParams(params interface{}) error {
	var p domain.PRNRequest
	if err := ParseParams(params, &p); err != nil {
		return err
	}
	if p.Drug == "" {
		return fmt.Errorf("drug is required")
	}
	return nil
}

func (t *PRNSuggestionTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params domain.PRNRequest
	if err := ParseParams(req.Params, &params); err != nil {
		return invalidParamsError("Invalid parameters", err.Error())
	}

	resp, err := t.calc.PRN(ctx, &params)
	if err != nil {
		return calculationError(err)
	}
	return result("prn", resp)
}

// PRNTableTool implements the prn_table MCP tool
type PRNTableTool struct {
	logger *logrus.Logger
	calc   domain.Calculator
}

func NewPRNTableTool(logger *logrus.Logger, calc domain.Calculator) *PRNTableTool {
	return &PRNTableTool{logger: logger, calc: calc}
}

func (t *PRNTableTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "prn_table",
		Description: "Size PRN doses for several severity tiers at once (moderate, severe, breakthrough), one suggestion per selection.",
		InputSchema: objectSchema(omeSourceProperties(prnOptionProperties(map[string]interface{}{
			"selections": prnSelectionsSchema(),
		})), "selections"),
	}
}

func (t *PRNTableTool) ValidateParams(params interface{}) error {
	var p domain.PRNTableRequest
	if err := ParseParams(params, &p); err != nil {
		return err
	}
	if len(p.Selections) == 0 {
		return fmt.Errorf("selections is required")
	}
	return nil
}

func (t *PRNTableTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params domain.PRNTableRequest
	if err := ParseParams(req.Params, &params); err != nil {
		return invalidParamsError("Invalid parameters", err.Error())
	}

	resp, err := t.calc.PRNTable(ctx, &params)
	if err != nil {
		return calculationError(err)
	}
	return result("prn_table", resp)
}

func prnOptionProperties(extra map[string]interface{}) map[string]interface{} {
	extra["opioid_naive"] = boolSchema("Use fixed opioid-naive starting doses")
	extra["preferred_apap_per_tablet_mg"] = numberSchema("Preferred APAP strength for combination tablets, e.g. 300 or 325")
	return extra
}

// =============================================================================
// Quick Converter Tool
// =============================================================================

// QuickConvertTool implements the quick_convert MCP tool
type QuickConvertTool struct {
	logger *logrus.Logger
	calc   domain.Calculator
}

func NewQuickConvertTool(logger *logrus.Logger, calc domain.Calculator) *QuickConvertTool {
	return &QuickConvertTool{logger: logger, calc: calc}
}

func (t *QuickConvertTool) GetToolInfo() protocol.ToolInfo {
	doseProps := func(what string) map[string]interface{} {
		return map[string]interface{}{
			"drug":       drugSchema(what + " opioid"),
			"route":      routeSchema(),
			"freq_hours": numberSchema("Dosing interval in hours"),
		}
	}
	source := doseProps("Source")
	source["dose"] = numberSchema("Source dose in mg (daily total when freq_hours is omitted)")

	return protocol.ToolInfo{
		Name:        "quick_convert",
		Description: "Convert one explicit source dose to a target opioid and route with step-by-step arithmetic.",
		InputSchema: objectSchema(map[string]interface{}{
			"source":              objectSchema(source, "drug", "route", "dose"),
			"target":              objectSchema(doseProps("Target"), "drug", "route"),
			"cross_tolerance_pct": numberSchema("Cross-tolerance reduction percent, 0-95 (default 25)"),
			"frail":               boolSchema("Use the conservative frail/elderly range"),
			"include_frequency":   boolSchema("Express the result per dose at the target interval"),
		}, "source", "target"),
	}
}

func (t *QuickConvertTool) ValidateParams(params interface{}) error {
	var p domain.QuickConvertRequest
	if err := ParseParams(params, &p); err != nil {
		return err
	}
	if p.Source.Drug == "" || p.Target.Drug == "" {
		return fmt.Errorf("source.drug and target.drug are required")
	}
	return nil
}

func (t *QuickConvertTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params domain.QuickConvertRequest
	if err := ParseParams(req.Params, &params); err != nil {
		return invalidParamsError("Invalid parameters", err.Error())
	}

	resp, err := t.calc.QuickConvert(ctx, &params)
	if err != nil {
		return calculationError(err)
	}
	return result("conversion", resp)
}

// =============================================================================
// Scheduled Regimen Tool
// =============================================================================

// ScheduledRegimenTool implements the scheduled_regimen MCP tool
type ScheduledRegimenTool struct {
	logger *logrus.Logger
	calc   domain.Calculator
}

func NewScheduledRegimenTool(logger *logrus.Logger, calc domain.Calculator) *ScheduledRegimenTool {
	return &ScheduledRegimenTool{logger: logger, calc: calc}
}

func (t *ScheduledRegimenTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "scheduled_regimen",
		Description: "Build a new scheduled (basal) opioid regimen at a chosen interval from the home OME.",
		InputSchema: objectSchema(omeSourceProperties(map[string]interface{}{
			"drug":                drugSchema("Scheduled opioid"),
			"route":               routeSchema(),
			"freq_hours":          numberSchema("Scheduled interval in hours"),
			"intensity_pct":       numberSchema("Percent of the converted dose to schedule (default 100)"),
			"cross_tolerance_pct": numberSchema("Cross-tolerance reduction percent, 0-95 (default 25)"),
			"frail":               boolSchema("Use the conservative frail/elderly range"),
			"opioid_naive":        boolSchema("Patient is opioid naive"),
		}), "drug", "route"),
	}
}

func (t *ScheduledRegimenTool) ValidateParams(params interface{}) error {
	var p domain.ScheduledRequest
	if err := ParseParams(params, &p); err != nil {
		return err
	}
	if p.Drug == "" {
		return fmt.Errorf("drug is required")
	}
	return nil
}

func (t *ScheduledRegimenTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params domain.ScheduledRequest
	if err := ParseParams(req.Params, &params); err != nil {
		return invalidParamsError("Invalid parameters", err.Error())
	}

	resp, err := t.calc.ScheduledRegimen(ctx, &params)
	if err != nil {
		return calculationError(err)
	}
	return result("scheduled", resp)
}

// =============================================================================
// Pain Plan Tool
// =============================================================================

// PainPlanTool implements the pain_plan MCP tool
type PainPlanTool struct {
	logger *logrus.Logger
	calc   domain.Calculator
}

func NewPainPlanTool(logger *logrus.Logger, calc domain.Calculator) *PainPlanTool {
	return &PainPlanTool{logger: logger, calc: calc}
}

func (t *PainPlanTool) GetToolInfo() protocol.ToolInfo {
	scheduled := objectSchema(map[string]interface{}{
		"drug":          drugSchema("Scheduled opioid"),
		"route":         routeSchema(),
		"freq_hours":    numberSchema("Scheduled interval in hours"),
		"intensity_pct": numberSchema("Percent of the converted dose to schedule"),
	}, "drug", "route", "freq_hours")

	adjuncts := objectSchema(map[string]interface{}{
		"general":     boolSchema("Scheduled acetaminophen or NSAIDs"),
		"neuropathic": boolSchema("Gabapentin"),
		"spasm":       boolSchema("Methocarbamol"),
		"localized":   boolSchema("Lidocaine 5% patch"),
	})

	return protocol.ToolInfo{
		Name:        "pain_plan",
		Description: "Render the pain management assessment-and-plan text: scheduled opioid, PRN tiers and multimodal adjuncts.",
		InputSchema: objectSchema(omeSourceProperties(prnOptionProperties(map[string]interface{}{
			"scheduled":           scheduled,
			"prn":                 prnSelectionsSchema(),
			"cross_tolerance_pct": numberSchema("Cross-tolerance reduction percent, 0-95 (default 25)"),
			"frail":               boolSchema("Use the conservative frail/elderly range"),
			"continue_er":         boolSchema("Continue home extended-release opioids"),
			"adjuncts":            adjuncts,
		}))),
	}
}

func (t *PainPlanTool) ValidateParams(params interface{}) error {
	var p domain.PlanRequest
	return ParseParams(params, &p)
}

func (t *PainPlanTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params domain.PlanRequest
	if err := ParseParams(req.Params, &params); err != nil {
		return invalidParamsError("Invalid parameters", err.Error())
	}

	resp, err := t.calc.PainPlan(ctx, &params)
	if err != nil {
		return calculationError(err)
	}
	return result("plan", resp)
}

// =============================================================================
// Reference Tables Tool
// =============================================================================

// ReferenceTablesTool implements the reference_tables MCP tool
type ReferenceTablesTool struct {
	logger *logrus.Logger
	calc   domain.Calculator
}

func NewReferenceTablesTool(logger *logrus.Logger, calc domain.Calculator) *ReferenceTablesTool {
	return &ReferenceTablesTool{logger: logger, calc: calc}
}

func (t *ReferenceTablesTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "reference_tables",
		Description: "Return the conversion factors, allowed routes, tablet strengths, PRN fractions and equianalgesic table used by every calculation.",
		InputSchema: objectSchema(map[string]interface{}{}),
	}
}

func (t *ReferenceTablesTool) ValidateParams(params interface{}) error {
	return nil // No parameters
}

func (t *ReferenceTablesTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	return result("reference", t.calc.ReferenceTables(ctx))
}
