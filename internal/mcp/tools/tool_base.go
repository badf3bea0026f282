package tools

import (
	"encoding/json"
	"fmt"

	"github.com/opioid-rotation-mcp-server/internal/domain"
	"github.com/opioid-rotation-mcp-server/internal/mcp/protocol"
	"github.com/opioid-rotation-mcp-server/pkg/opioid"
)

// ParseParams decodes generic tool parameters into target through a JSON
// round trip.
//
// Usage:
//
//	var params domain.RotateRequest
//	if err := ParseParams(req.Params, &params); err != nil {
//	    return invalidParamsError("Invalid parameters", err.Error())
//	}
func ParseParams(params interface{}, target interface{}) error {
	if params == nil {
		return fmt.Errorf("missing required parameters")
	}

	paramsBytes, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}

	if err := json.Unmarshal(paramsBytes, target); err != nil {
		return fmt.Errorf("failed to parse parameters: %w", err)
	}

	return nil
}

func invalidParamsError(msg string, data ...interface{}) *protocol.JSONRPC2Response {
	resp := protocol.NewErrorResponse(nil, protocol.InvalidParams, msg, nil)
	if len(data) > 0 && data[0] != nil && data[0] != "" {
		resp.Error.Data = data[0]
	}
	return resp
}

func internalError(msg string, data string) *protocol.JSONRPC2Response {
	return protocol.NewErrorResponse(nil, protocol.InternalError, msg, data)
}

// calculationError maps a calculator error to a response. Validation errors
// become InvalidParams with the offending field in Data.
func calculationError(err error) *protocol.JSONRPC2Response {
	if ve, ok := domain.AsValidationError(err); ok {
		return invalidParamsError(ve.Error(), ve)
	}
	return internalError("Calculation failed", err.Error())
}

func result(key string, value interface{}) *protocol.JSONRPC2Response {
	return &protocol.JSONRPC2Response{
		Result: map[string]interface{}{key: value},
	}
}

// Schema fragments shared by the calculator tools.

func drugSchema(description string) map[string]interface{} {
	drugs := opioid.Drugs()
	enum := make([]string, 0, len(drugs))
	for _, d := range drugs {
		enum = append(enum, string(d))
	}
	return map[string]interface{}{
		"type":        "string",
		"description": description + " (aliases such as percocet, norco, dilaudid are accepted)",
		"examples":    enum,
	}
}

func routeSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Route: oral (po), iv (iv/sc) or tds (transdermal)",
	}
}

func severitySchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Pain severity tier",
		"enum":        []string{string(opioid.Moderate), string(opioid.Severe), string(opioid.Breakthrough)},
	}
}

func numberSchema(description string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": description}
}

func boolSchema(description string) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": description}
}

func medicationsSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": "Home opioid regimen entries",
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"drug":                  drugSchema("Home opioid"),
				"route":                 routeSchema(),
				"dose":                  numberSchema("Dose per administration in mg (mcg/h for fentanyl patches)"),
				"freq_hours":            numberSchema("Dosing interval in hours"),
				"prn":                   boolSchema("Taken as needed"),
				"avg_prn_doses_per_day": numberSchema("Average PRN doses actually taken per day"),
				"extended_release":      boolSchema("Extended or long-acting formulation"),
				"apap_per_tablet_mg":    numberSchema("Acetaminophen per tablet for combination products"),
			},
		},
	}
}

func prnSelectionsSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": "One PRN selection per severity tier",
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"severity":   severitySchema(),
				"drug":       drugSchema("PRN opioid"),
				"route":      routeSchema(),
				"freq_hours": numberSchema("PRN interval in hours, clamped to 2-12"),
			},
			"required": []string{"severity", "drug", "route"},
		},
	}
}

// omeSourceProperties returns the home-regimen inputs merged with extra.
func omeSourceProperties(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"medications":                medicationsSchema(),
		"ome":                        numberSchema("Known total daily OME; overrides medications"),
		"default_apap_per_tablet_mg": numberSchema("APAP per tablet assumed when not entered"),
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
