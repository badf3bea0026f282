package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/opioid-rotation-mcp-server/internal/feedback"
	"github.com/opioid-rotation-mcp-server/internal/mcp/protocol"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// =============================================================================
// Submit Feedback Tool
// =============================================================================

// SubmitFeedbackTool implements the submit_feedback MCP tool
type SubmitFeedbackTool struct {
	logger *logrus.Logger
	store  feedback.Store
}

// SubmitFeedbackParams defines parameters for the submit_feedback tool
type SubmitFeedbackParams struct {
	Calculation     string `json:"calculation"`
	InputSummary    string `json:"input_summary"`
	SuggestedText   string `json:"suggested_text"`
	OrderedText     string `json:"ordered_text,omitempty"`
	ClinicianAgreed *bool  `json:"clinician_agreed,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// SubmitFeedbackResult defines the result of submit_feedback
type SubmitFeedbackResult struct {
	Success  bool               `json:"success"`
	Message  string             `json:"message"`
	Feedback *feedback.Feedback `json:"feedback,omitempty"`
}

// NewSubmitFeedbackTool creates a new submit_feedback tool
func NewSubmitFeedbackTool(logger *logrus.Logger, store feedback.Store) *SubmitFeedbackTool {
	return &SubmitFeedbackTool{
		logger: logger,
		store:  store,
	}
}

// GetToolInfo returns the tool information for submit_feedback
func (t *SubmitFeedbackTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name: "submit_feedback",
		Description: "Record what was actually ordered after a calculator suggestion. " +
			"Feedback for the same calculation and input summary replaces the earlier entry.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"calculation": map[string]interface{}{
					"type":        "string",
					"description": "The calculator tool the suggestion came from",
					"enum": []string{
						string(feedback.CalculationHomeOME), string(feedback.CalculationRotate),
						string(feedback.CalculationPRN), string(feedback.CalculationPRNTable),
						string(feedback.CalculationQuick), string(feedback.CalculationScheduled),
						string(feedback.CalculationPlan),
					},
				},
				"input_summary": map[string]interface{}{
					"type":        "string",
					"description": "Short description of the case, e.g. \"oxycodone 10 mg PO q4h -> hydromorphone IV\"",
				},
				"suggested_text": map[string]interface{}{
					"type":        "string",
					"description": "The suggestion text the calculator produced",
				},
				"ordered_text": map[string]interface{}{
					"type":        "string",
					"description": "What was actually ordered (optional)",
				},
				"clinician_agreed": map[string]interface{}{
					"type":        "boolean",
					"description": "Whether the clinician agreed; derived from ordered_text when omitted",
				},
				"notes": map[string]interface{}{
					"type":        "string",
					"description": "Additional notes or reasoning (optional)",
				},
			},
			"required": []string{"calculation", "input_summary", "suggested_text"},
		},
	}
}

// ValidateParams validates the input parameters
func (t *SubmitFeedbackTool) ValidateParams(params interface{}) error {
	var p SubmitFeedbackParams
	if err := ParseParams(params, &p); err != nil {
		return err
	}
	return p.toFeedback().Validate()
}

// HandleTool handles the submit_feedback tool request
func (t *SubmitFeedbackTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	var params SubmitFeedbackParams
	if err := ParseParams(req.Params, &params); err != nil {
		return invalidParamsError("Invalid parameters", err.Error())
	}

	fb := params.toFeedback()
	if err := t.store.Save(ctx, fb); err != nil {
		if errors.Is(err, feedback.ErrInvalidFeedback) {
			return invalidParamsError(err.Error())
		}
		t.logger.WithError(err).Error("Failed to save feedback")
		return internalError("Failed to save feedback", err.Error())
	}

	t.logger.WithFields(logrus.Fields{
		"feedback_id": fb.ID,
		"calculation": fb.Calculation,
		"agreed":      fb.ClinicianAgreed,
	}).Info("Feedback saved")

	msg := "Feedback saved: clinician agreed with the suggestion"
	if !fb.ClinicianAgreed {
		msg = fmt.Sprintf("Feedback saved: suggestion %q, ordered %q", fb.SuggestedText, fb.OrderedText)
	}

	return result("feedback", SubmitFeedbackResult{Success: true, Message: msg, Feedback: fb})
}

func (p SubmitFeedbackParams) toFeedback() *feedback.Feedback {
	ordered := strings.TrimSpace(p.OrderedText)
	agreed := ordered == "" || ordered == strings.TrimSpace(p.SuggestedText)
	if p.ClinicianAgreed != nil {
		agreed = *p.ClinicianAgreed
	}
	return &feedback.Feedback{
		Calculation:     feedback.Calculation(strings.TrimSpace(p.Calculation)),
		InputSummary:    strings.TrimSpace(p.InputSummary),
		SuggestedText:   strings.TrimSpace(p.SuggestedText),
		OrderedText:     ordered,
		ClinicianAgreed: agreed,
		Notes:           p.Notes,
	}
}

// =============================================================================
// List Feedback Tool
// =============================================================================

// ListFeedbackTool implements the list_feedback MCP tool
type ListFeedbackTool struct {
	logger *logrus.Logger
	store  feedback.Store
}

// ListFeedbackParams defines parameters for the list_feedback tool
type ListFeedbackParams struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ListFeedbackResult defines the result of list_feedback
type ListFeedbackResult struct {
	Feedback []*feedback.Feedback `json:"feedback"`
	Total    int64                `json:"total"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
}

// NewListFeedbackTool creates a new list_feedback tool
func NewListFeedbackTool(logger *logrus.Logger, store feedback.Store) *ListFeedbackTool {
	return &ListFeedbackTool{
		logger: logger,
		store:  store,
	}
}

// GetToolInfo returns the tool information for list_feedback
func (t *ListFeedbackTool) GetToolInfo() protocol.ToolInfo {
	return protocol.ToolInfo{
		Name:        "list_feedback",
		Description: "List saved clinician feedback, newest first, with pagination.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": fmt.Sprintf("Maximum number of entries to return (default %d, max %d)", defaultListLimit, maxListLimit),
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Number of entries to skip (default 0)",
				},
			},
		},
	}
}

// ValidateParams validates the input parameters
func (t *ListFeedbackTool) ValidateParams(params interface{}) error {
	if params == nil {
		return nil
	}
	var p ListFeedbackParams
	if err := ParseParams(params, &p); err != nil {
		return err
	}
	if p.Limit < 0 || p.Offset < 0 {
		return fmt.Errorf("limit and offset must not be negative")
	}
	return nil
}

// HandleTool handles the list_feedback tool request
func (t *ListFeedbackTool) HandleTool(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	if err := t.ValidateParams(req.Params); err != nil {
		return invalidParamsError("Invalid parameters", err.Error())
	}
	var params ListFeedbackParams
	if req.Params != nil {
		_ = ParseParams(req.Params, &params)
	}

	limit := params.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	entries, err := t.store.List(ctx, limit, params.Offset)
	if err != nil {
		t.logger.WithError(err).Error("Failed to list feedback")
		return internalError("Failed to list feedback", err.Error())
	}
	total, err := t.store.Count(ctx)
	if err != nil {
		t.logger.WithError(err).Error("Failed to count feedback")
		return internalError("Failed to count feedback", err.Error())
	}
	if entries == nil {
		entries = []*feedback.Feedback{}
	}

	return result("feedback_list", ListFeedbackResult{
		Feedback: entries,
		Total:    total,
		Limit:    limit,
		Offset:   params.Offset,
	})
}
