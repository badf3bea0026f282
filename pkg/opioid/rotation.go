package opioid

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RotationOptions are the per-conversion safety adjustments.
type RotationOptions struct {
	CrossTolerancePct float64 `json:"cross_tolerance_pct"`
	Frail             bool    `json:"frail"`
}

// ConversionResult is the outcome of converting an OME total into a target.
// At most one of Range and FentanylPatchMcgHr is set; when neither is, Notes
// explains why.
type ConversionResult struct {
	Outcome
	Target             Drug        `json:"target"`
	TargetRoute        Route       `json:"target_route"`
	AdjustedOME        float64     `json:"adjusted_ome"`
	Factor             float64     `json:"factor,omitempty"`
	TargetDailyMg      float64     `json:"target_daily_mg,omitempty"`
	Range              *DoseRange  `json:"range,omitempty"`
	FentanylPatchMcgHr *PatchRange `json:"fentanyl_patch_mcg_hr,omitempty"`
	Notes              []string    `json:"notes"`
}

// ClampCrossTolerance bounds pct to [0, MaxCrossTolerancePct].
func ClampCrossTolerance(pct float64) float64 {
	if math.IsNaN(pct) || pct < 0 {
		return 0
	}
	if pct > MaxCrossTolerancePct {
		return MaxCrossTolerancePct
	}
	return pct
}

// RotateToTarget converts a daily OME into a suggested daily range of the
// target drug, or a fentanyl patch pair. Every arithmetic step is narrated
// in Notes in the order performed.
func RotateToTarget(ome float64, target Drug, route Route, opts RotationOptions) ConversionResult {
	pct := ClampCrossTolerance(opts.CrossTolerancePct)
	adjusted := ome * (1 - pct/100)

	res := ConversionResult{
		Target:      target,
		TargetRoute: route,
		AdjustedOME: adjusted,
		Notes: []string{fmt.Sprintf("1) Cross-tolerance reduction: %.1f OME × (1 - %s%%) = %.1f OME/day",
			ome, FormatDose(pct), adjusted)},
	}

	switch {
	case target.IsNonlinear():
		res.Outcome = unsupported("specialist conversion required")
		res.Notes = append(res.Notes, fmt.Sprintf(
			"Special agent: %s conversion is complex and requires specialist guidance (e.g., pain/palliative consult).",
			target.Label()))
		return res

	case target == FentanylTDS:
		low := adjusted / FentanylOMEPerUnitHigh * FentanylMcgHrUnit
		high := adjusted / FentanylOMEPerUnitLow * FentanylMcgHrUnit
		if opts.Frail {
			high *= frailFentanylHighFactor
			res.Notes = append(res.Notes, "Frail/Elderly: High end of patch range reduced by 25%.")
		}
		patch := PatchRange{Low: NearestPatch(low), High: NearestPatch(high)}
		res.FentanylPatchMcgHr = &patch
		res.Outcome = okOutcome()
		res.Notes = append(res.Notes, fmt.Sprintf(
			"2) Fentanyl conversion: ~%s mcg/h patch. (Based on 60–90 OME/25 mcg/h, then rounded to standard patches: %s.)",
			formatPatchRange(patch), patchList()))
		return res
	}

	factor, ok := TargetFactor(target, route)
	if !ok || factor <= 0 {
		res.Outcome = missingData(fmt.Sprintf("no target factor for %s %s", target.Label(), route.Label()))
		res.Notes = append(res.Notes, fmt.Sprintf("Error: Missing conversion factor for %s %s.",
			target.Label(), route.Label()))
		return res
	}

	daily := adjusted / factor
	res.Factor = factor
	res.TargetDailyMg = daily
	res.Notes = append(res.Notes, fmt.Sprintf(
		"2) Target conversion factor is %s. Calculated daily dose: %.1f OME / %s = %.1f mg/day",
		FormatDose(factor), adjusted, FormatDose(factor), daily))

	lowFactor, highFactor := standardLowFactor, standardHighFactor
	if opts.Frail {
		lowFactor, highFactor = frailLowFactor, frailHighFactor
		res.Notes = append(res.Notes, "Frail/Elderly: Range uses a more conservative 75% to 90% of calculated dose.")
	}
	r := DoseRange{
		Low:  math.Max(0, RoundTo(daily*lowFactor, 1)),
		High: math.Max(0, RoundTo(daily*highFactor, 1)),
	}
	res.Range = &r
	res.Outcome = okOutcome()
	res.Notes = append(res.Notes, fmt.Sprintf("3) Suggested daily dose range: %.1f–%.1f mg/day.", r.Low, r.High))
	return res
}

func patchList() string {
	parts := make([]string, len(fentanylPatches))
	for i, p := range fentanylPatches {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ", ")
}
