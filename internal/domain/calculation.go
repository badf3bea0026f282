package domain

import (
	"github.com/opioid-rotation-mcp-server/pkg/opioid"
)

// OMESource supplies the home OME for a calculation. When OME is set it is
// used directly; otherwise Medications are aggregated.
type OMESource struct {
	Medications            []opioid.HomeMedication `json:"medications,omitempty"`
	OME                    *float64                `json:"ome,omitempty"`
	DefaultAPAPPerTabletMg float64                 `json:"default_apap_per_tablet_mg,omitempty"`
}

// HomeRegimenRequest asks for the OME and APAP totals of a home regimen
type HomeRegimenRequest struct {
	Medications            []opioid.HomeMedication `json:"medications"`
	DefaultAPAPPerTabletMg float64                 `json:"default_apap_per_tablet_mg,omitempty"`
}

// RotateRequest converts the home OME into a target drug and route
type RotateRequest struct {
	OMESource
	Target            opioid.Drug  `json:"target"`
	Route             opioid.Route `json:"route"`
	CrossTolerancePct *float64     `json:"cross_tolerance_pct,omitempty"`
	Frail             bool         `json:"frail,omitempty"`
}

// RotateResponse carries the rotation and the regimen it started from
type RotateResponse struct {
	OME        float64                 `json:"ome"`
	Regimen    *opioid.RegimenSummary  `json:"regimen,omitempty"`
	Conversion opioid.ConversionResult `json:"conversion"`
}

// PRNRequest sizes one as-needed dose
type PRNRequest struct {
	OMESource
	Severity                 opioid.Severity `json:"severity"`
	Drug                     opioid.Drug     `json:"drug"`
	Route                    opioid.Route    `json:"route"`
	FreqHours                float64         `json:"freq_hours"`
	OpioidNaive              bool            `json:"opioid_naive,omitempty"`
	PreferredAPAPPerTabletMg float64         `json:"preferred_apap_per_tablet_mg,omitempty"`
}

// PRNResponse carries one PRN suggestion
type PRNResponse struct {
	OME        float64                `json:"ome"`
	Regimen    *opioid.RegimenSummary `json:"regimen,omitempty"`
	Suggestion opioid.PRNSuggestion   `json:"suggestion"`
}

// PRNTableRequest sizes a PRN dose for each selected severity tier
type PRNTableRequest struct {
	OMESource
	Selections               []opioid.PRNSelection `json:"selections"`
	OpioidNaive              bool                  `json:"opioid_naive,omitempty"`
	PreferredAPAPPerTabletMg float64               `json:"preferred_apap_per_tablet_mg,omitempty"`
}

// PRNTableResponse carries one suggestion per selection, in selection order
type PRNTableResponse struct {
	OME         float64                `json:"ome"`
	Regimen     *opioid.RegimenSummary `json:"regimen,omitempty"`
	Suggestions []opioid.PRNSuggestion `json:"suggestions"`
}

// QuickConvertRequest converts one explicit source dose
type QuickConvertRequest struct {
	Source            opioid.QuickSource `json:"source"`
	Target            opioid.QuickTarget `json:"target"`
	CrossTolerancePct *float64           `json:"cross_tolerance_pct,omitempty"`
	Frail             bool               `json:"frail,omitempty"`
	IncludeFrequency  bool               `json:"include_frequency,omitempty"`
}

// ScheduledRequest builds a new scheduled (basal) regimen
type ScheduledRequest struct {
	OMESource
	Drug              opioid.Drug  `json:"drug"`
	Route             opioid.Route `json:"route"`
	FreqHours         float64      `json:"freq_hours"`
	IntensityPct      float64      `json:"intensity_pct,omitempty"`
	CrossTolerancePct *float64     `json:"cross_tolerance_pct,omitempty"`
	Frail             bool         `json:"frail,omitempty"`
	OpioidNaive       bool         `json:"opioid_naive,omitempty"`
}

// ScheduledResponse carries the scheduled regimen
type ScheduledResponse struct {
	OME       float64                 `json:"ome"`
	Regimen   *opioid.RegimenSummary  `json:"regimen,omitempty"`
	Scheduled opioid.ScheduledRegimen `json:"scheduled"`
}

// ScheduledSelection is the basal regimen chosen for a pain plan
type ScheduledSelection struct {
	Drug         opioid.Drug  `json:"drug"`
	Route        opioid.Route `json:"route"`
	FreqHours    float64      `json:"freq_hours"`
	IntensityPct float64      `json:"intensity_pct,omitempty"`
}

// PlanRequest renders the pain management plan from one home regimen
type PlanRequest struct {
	OMESource
	Scheduled                *ScheduledSelection   `json:"scheduled,omitempty"`
	PRN                      []opioid.PRNSelection `json:"prn,omitempty"`
	CrossTolerancePct        *float64              `json:"cross_tolerance_pct,omitempty"`
	Frail                    bool                  `json:"frail,omitempty"`
	OpioidNaive              bool                  `json:"opioid_naive,omitempty"`
	PreferredAPAPPerTabletMg float64               `json:"preferred_apap_per_tablet_mg,omitempty"`
	ContinueER               *bool                 `json:"continue_er,omitempty"`
	Adjuncts                 opioid.Adjuncts       `json:"adjuncts"`
}

// PlanResponse carries the rendered plan and the pieces it was built from
type PlanResponse struct {
	OME       float64                  `json:"ome"`
	Regimen   *opioid.RegimenSummary   `json:"regimen,omitempty"`
	Scheduled *opioid.ScheduledRegimen `json:"scheduled,omitempty"`
	PRN       []opioid.PRNSuggestion   `json:"prn,omitempty"`
	Text      string                   `json:"text"`
}
