package domain

import (
	"context"

	"github.com/opioid-rotation-mcp-server/pkg/opioid"
)

// Calculator exposes every dose-equivalence calculation behind validation.
// An error is returned only for malformed requests; clinical conditions are
// reported through each result's Status.
type Calculator interface {
	HomeRegimen(ctx context.Context, req *HomeRegimenRequest) (*opioid.RegimenSummary, error)
	Rotate(ctx context.Context, req *RotateRequest) (*RotateResponse, error)
	PRN(ctx context.Context, req *PRNRequest) (*PRNResponse, error)
	PRNTable(ctx context.Context, req *PRNTableRequest) (*PRNTableResponse, error)
	QuickConvert(ctx context.Context, req *QuickConvertRequest) (*opioid.QuickResult, error)
	ScheduledRegimen(ctx context.Context, req *ScheduledRequest) (*ScheduledResponse, error)
	PainPlan(ctx context.Context, req *PlanRequest) (*PlanResponse, error)
	ReferenceTables(ctx context.Context) opioid.Reference
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetFeedbackConfig() *FeedbackConfig
	GetCalculatorConfig() *CalculatorConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
