package resources

import (
	"context"
	"errors"

	"github.com/opioid-rotation-mcp-server/internal/domain"
	"github.com/opioid-rotation-mcp-server/internal/health"
	"github.com/opioid-rotation-mcp-server/pkg/opioid"
)

// Resource URIs.
const (
	FactorsURI       = "opioid://reference/factors"
	EquianalgesicURI = "opioid://reference/equianalgesic"
	HealthURI        = "opioid://health"
)

var ErrResourceNotFound = errors.New("resource not found")

// FactorsProvider serves the conversion factors, routes, tablet strengths and
// PRN fractions used by the calculator.
type FactorsProvider struct {
	calc domain.Calculator
}

func NewFactorsProvider(calc domain.Calculator) *FactorsProvider {
	return &FactorsProvider{calc: calc}
}

func (p *FactorsProvider) GetResourceInfo() ResourceInfo {
	return ResourceInfo{
		URI:         FactorsURI,
		Name:        "Conversion factors",
		Description: "MME and target factors per drug and route, combination tablets, fentanyl patches and PRN fractions",
		MimeType:    mimeJSON,
	}
}

func (p *FactorsProvider) GetResource(ctx context.Context) (*ResourceContent, error) {
	return jsonContent(FactorsURI, p.calc.ReferenceTables(ctx))
}

// EquianalgesicProvider serves the display-only equianalgesic chart.
type EquianalgesicProvider struct{}

func (EquianalgesicProvider) GetResourceInfo() ResourceInfo {
	return ResourceInfo{
		URI:         EquianalgesicURI,
		Name:        "Equianalgesic table",
		Description: "Approximate oral and parenteral doses equivalent to 30 mg oral morphine. Display only",
		MimeType:    mimeJSON,
	}
}

func (EquianalgesicProvider) GetResource(context.Context) (*ResourceContent, error) {
	return jsonContent(EquianalgesicURI, opioid.EquianalgesicTable())
}

// HealthProvider serves the latest health report. Checks run on demand
// until the background checker has completed one pass.
type HealthProvider struct {
	checker *health.Checker
}

func NewHealthProvider(checker *health.Checker) *HealthProvider {
	return &HealthProvider{checker: checker}
}

func (p *HealthProvider) GetResourceInfo() ResourceInfo {
	return ResourceInfo{
		URI:         HealthURI,
		Name:        "Server health",
		Description: "Cache, circuit breaker, feedback store and reference table status",
		MimeType:    mimeJSON,
	}
}

func (p *HealthProvider) GetResource(ctx context.Context) (*ResourceContent, error) {
	status := p.checker.Status()
	if status.CheckCount == 0 {
		status = p.checker.Run(ctx)
	}
	return jsonContent(HealthURI, status)
}
