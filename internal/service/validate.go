package service

import (
	"fmt"
	"math"

	"github.com/opioid-rotation-mcp-server/internal/domain"
	"github.com/opioid-rotation-mcp-server/pkg/opioid"
)

func checkNumber(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return domain.NewValidationError(field, "must be a finite number", v)
	}
	if v < 0 {
		return domain.NewValidationError(field, "must not be negative", v)
	}
	return nil
}

func parseDrug(field string, d opioid.Drug, required bool) (opioid.Drug, error) {
	if d == "" {
		if required {
			return "", domain.NewValidationError(field, "drug is required", d)
		}
		return "", nil
	}
	parsed, err := opioid.ParseDrug(string(d))
	if err != nil {
		return "", domain.NewValidationError(field, "unknown drug", string(d))
	}
	return parsed, nil
}

func parseRoute(field string, d opioid.Drug, r opioid.Route, required bool) (opioid.Route, error) {
	if r == "" {
		if required {
			return "", domain.NewValidationError(field, "route is required", r)
		}
		return "", nil
	}
	parsed, err := opioid.ParseRoute(string(r))
	if err != nil {
		return "", domain.NewValidationError(field, "unknown route", string(r))
	}
	if d != "" && !d.RouteAllowed(parsed) {
		return "", domain.NewValidationError(field,
			fmt.Sprintf("route %s is not available for %s", parsed.Label(), d.Label()), string(r))
	}
	return parsed, nil
}

func parseSeverity(field string, s opioid.Severity) (opioid.Severity, error) {
	if s == "" {
		return "", nil
	}
	parsed, err := opioid.ParseSeverity(string(s))
	if err != nil {
		return "", domain.NewValidationError(field, "unknown severity", string(s))
	}
	return parsed, nil
}

// normalizeMedications validates each row and resolves aliases. Rows with a
// blank drug or route are kept; aggregation reports them as incomplete.
func normalizeMedications(meds []opioid.HomeMedication) ([]opioid.HomeMedication, error) {
	out := make([]opioid.HomeMedication, len(meds))
	for i, m := range meds {
		prefix := fmt.Sprintf("medications[%d]", i)
		d, err := parseDrug(prefix+".drug", m.Drug, false)
		if err != nil {
			return nil, err
		}
		r, err := parseRoute(prefix+".route", d, m.Route, false)
		if err != nil {
			return nil, err
		}
		for _, f := range []struct {
			name  string
			value float64
		}{
			{"dose", m.Dose},
			{"freq_hours", m.FreqHours},
			{"avg_prn_doses_per_day", m.AvgPRNDosesPerDay},
			{"apap_per_tablet_mg", m.APAPPerTabletMg},
		} {
			if err := checkNumber(prefix+"."+f.name, f.value); err != nil {
				return nil, err
			}
		}
		m.Drug, m.Route = d, r
		out[i] = m
	}
	return out, nil
}

func validateSource(src domain.OMESource) (domain.OMESource, error) {
	meds, err := normalizeMedications(src.Medications)
	if err != nil {
		return src, err
	}
	src.Medications = meds
	if src.OME != nil {
		if err := checkNumber("ome", *src.OME); err != nil {
			return src, err
		}
		ome := *src.OME
		src.OME = &ome
	}
	if err := checkNumber("default_apap_per_tablet_mg", src.DefaultAPAPPerTabletMg); err != nil {
		return src, err
	}
	return src, nil
}

func normalizeSelection(field string, sel opioid.PRNSelection) (opioid.PRNSelection, error) {
	sev, err := parseSeverity(field+".severity", sel.Severity)
	if err != nil {
		return sel, err
	}
	d, err := parseDrug(field+".drug", sel.Drug, true)
	if err != nil {
		return sel, err
	}
	r, err := parseRoute(field+".route", d, sel.Route, true)
	if err != nil {
		return sel, err
	}
	if err := checkNumber(field+".freq_hours", sel.FreqHours); err != nil {
		return sel, err
	}
	return opioid.PRNSelection{Severity: sev, Drug: d, Route: r, FreqHours: sel.FreqHours}, nil
}

func checkOptionalPct(field string, pct *float64) error {
	if pct == nil {
		return nil
	}
	if math.IsNaN(*pct) || math.IsInf(*pct, 0) {
		return domain.NewValidationError(field, "must be a finite number", *pct)
	}
	return nil
}
