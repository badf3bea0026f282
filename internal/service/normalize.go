package service

import (
	"fmt"

	"github.com/opioid-rotation-mcp-server/internal/domain"
	"github.com/opioid-rotation-mcp-server/pkg/opioid"
)

// The normalize* helpers validate a request and return a canonical copy with
// aliases resolved and defaults filled in. The canonical copy is the cache key.

func (s *CalculatorService) normalizeSource(src domain.OMESource) (domain.OMESource, error) {
	norm, err := validateSource(src)
	if err != nil {
		return norm, err
	}
	norm.DefaultAPAPPerTabletMg = s.apapDefault(norm.DefaultAPAPPerTabletMg)
	// Explicit OME wins; the regimen is not aggregated.
	if norm.OME != nil {
		norm.Medications = nil
	}
	return norm, nil
}

func (s *CalculatorService) normalizeRotate(req domain.RotateRequest) (domain.RotateRequest, error) {
	src, err := s.normalizeSource(req.OMESource)
	if err != nil {
		return req, err
	}
	target, err := parseDrug("target", req.Target, true)
	if err != nil {
		return req, err
	}
	route, err := parseRoute("route", target, req.Route, true)
	if err != nil {
		return req, err
	}
	if err := checkOptionalPct("cross_tolerance_pct", req.CrossTolerancePct); err != nil {
		return req, err
	}
	return domain.RotateRequest{
		OMESource:         src,
		Target:            target,
		Route:             route,
		CrossTolerancePct: s.crossTolerance(req.CrossTolerancePct),
		Frail:             req.Frail,
	}, nil
}

func (s *CalculatorService) normalizePRN(req domain.PRNRequest) (domain.PRNRequest, error) {
	src, err := s.normalizeSource(req.OMESource)
	if err != nil {
		return req, err
	}
	sel, err := normalizeSelection("prn", opioid.PRNSelection{
		Severity: req.Severity, Drug: req.Drug, Route: req.Route, FreqHours: req.FreqHours,
	})
	if err != nil {
		return req, err
	}
	if err := checkNumber("preferred_apap_per_tablet_mg", req.PreferredAPAPPerTabletMg); err != nil {
		return req, err
	}
	return domain.PRNRequest{
		OMESource:                src,
		Severity:                 sel.Severity,
		Drug:                     sel.Drug,
		Route:                    sel.Route,
		FreqHours:                sel.FreqHours,
		OpioidNaive:              req.OpioidNaive,
		PreferredAPAPPerTabletMg: req.PreferredAPAPPerTabletMg,
	}, nil
}

func normalizeSelections(field string, in []opioid.PRNSelection) ([]opioid.PRNSelection, error) {
	out := make([]opioid.PRNSelection, len(in))
	for i, sel := range in {
		norm, err := normalizeSelection(fmt.Sprintf("%s[%d]", field, i), sel)
		if err != nil {
			return nil, err
		}
		out[i] = norm
	}
	return out, nil
}

func (s *CalculatorService) normalizePRNTable(req domain.PRNTableRequest) (domain.PRNTableRequest, error) {
	src, err := s.normalizeSource(req.OMESource)
	if err != nil {
		return req, err
	}
	if len(req.Selections) == 0 {
		return req, domain.NewValidationError("selections", "at least one severity selection is required", nil)
	}
	sels, err := normalizeSelections("selections", req.Selections)
	if err != nil {
		return req, err
	}
	if err := checkNumber("preferred_apap_per_tablet_mg", req.PreferredAPAPPerTabletMg); err != nil {
		return req, err
	}
	return domain.PRNTableRequest{
		OMESource:                src,
		Selections:               sels,
		OpioidNaive:              req.OpioidNaive,
		PreferredAPAPPerTabletMg: req.PreferredAPAPPerTabletMg,
	}, nil
}

func (s *CalculatorService) normalizeQuick(req domain.QuickConvertRequest) (domain.QuickConvertRequest, error) {
	srcDrug, err := parseDrug("source.drug", req.Source.Drug, true)
	if err != nil {
		return req, err
	}
	srcRoute, err := parseRoute("source.route", srcDrug, req.Source.Route, true)
	if err != nil {
		return req, err
	}
	dstDrug, err := parseDrug("target.drug", req.Target.Drug, true)
	if err != nil {
		return req, err
	}
	dstRoute, err := parseRoute("target.route", dstDrug, req.Target.Route, true)
	if err != nil {
		return req, err
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"source.dose", req.Source.Dose},
		{"source.freq_hours", req.Source.FreqHours},
		{"target.freq_hours", req.Target.FreqHours},
	} {
		if err := checkNumber(f.name, f.value); err != nil {
			return req, err
		}
	}
	if err := checkOptionalPct("cross_tolerance_pct", req.CrossTolerancePct); err != nil {
		return req, err
	}
	return domain.QuickConvertRequest{
		Source:            opioid.QuickSource{Drug: srcDrug, Route: srcRoute, Dose: req.Source.Dose, FreqHours: req.Source.FreqHours},
		Target:            opioid.QuickTarget{Drug: dstDrug, Route: dstRoute, FreqHours: req.Target.FreqHours},
		CrossTolerancePct: s.crossTolerance(req.CrossTolerancePct),
		Frail:             req.Frail,
		IncludeFrequency:  req.IncludeFrequency,
	}, nil
}

func (s *CalculatorService) normalizeScheduled(req domain.ScheduledRequest) (domain.ScheduledRequest, error) {
	src, err := s.normalizeSource(req.OMESource)
	if err != nil {
		return req, err
	}
	d, err := parseDrug("drug", req.Drug, true)
	if err != nil {
		return req, err
	}
	r, err := parseRoute("route", d, req.Route, true)
	if err != nil {
		return req, err
	}
	if err := checkNumber("freq_hours", req.FreqHours); err != nil {
		return req, err
	}
	if err := checkOptionalPct("cross_tolerance_pct", req.CrossTolerancePct); err != nil {
		return req, err
	}
	intensity := req.IntensityPct
	if err := checkOptionalPct("intensity_pct", &intensity); err != nil {
		return req, err
	}
	return domain.ScheduledRequest{
		OMESource:         src,
		Drug:              d,
		Route:             r,
		FreqHours:         req.FreqHours,
		IntensityPct:      opioid.ClampIntensity(intensity),
		CrossTolerancePct: s.crossTolerance(req.CrossTolerancePct),
		Frail:             req.Frail,
		OpioidNaive:       req.OpioidNaive,
	}, nil
}

func (s *CalculatorService) normalizePlan(req domain.PlanRequest) (domain.PlanRequest, error) {
	src, err := validateSource(req.OMESource)
	if err != nil {
		return req, err
	}
	// The plan lists home ER/LA rows, so medications are kept even when an
	// explicit OME is supplied.
	src.DefaultAPAPPerTabletMg = s.apapDefault(src.DefaultAPAPPerTabletMg)

	norm := domain.PlanRequest{
		OMESource:                src,
		CrossTolerancePct:        s.crossTolerance(req.CrossTolerancePct),
		Frail:                    req.Frail,
		OpioidNaive:              req.OpioidNaive,
		PreferredAPAPPerTabletMg: req.PreferredAPAPPerTabletMg,
		ContinueER:               req.ContinueER,
		Adjuncts:                 req.Adjuncts,
	}
	if err := checkOptionalPct("cross_tolerance_pct", req.CrossTolerancePct); err != nil {
		return req, err
	}
	if err := checkNumber("preferred_apap_per_tablet_mg", req.PreferredAPAPPerTabletMg); err != nil {
		return req, err
	}

	if sel := req.Scheduled; sel != nil {
		d, err := parseDrug("scheduled.drug", sel.Drug, true)
		if err != nil {
			return req, err
		}
		r, err := parseRoute("scheduled.route", d, sel.Route, true)
		if err != nil {
			return req, err
		}
		if err := checkNumber("scheduled.freq_hours", sel.FreqHours); err != nil {
			return req, err
		}
		intensity := sel.IntensityPct
		if err := checkOptionalPct("scheduled.intensity_pct", &intensity); err != nil {
			return req, err
		}
		norm.Scheduled = &domain.ScheduledSelection{
			Drug: d, Route: r, FreqHours: sel.FreqHours, IntensityPct: opioid.ClampIntensity(intensity),
		}
	}

	if len(req.PRN) > 0 {
		sels, err := normalizeSelections("prn", req.PRN)
		if err != nil {
			return req, err
		}
		norm.PRN = sels
	}
	return norm, nil
}
