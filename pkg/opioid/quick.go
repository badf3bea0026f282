package opioid

import "fmt"

// QuickSource is a single explicit source dose.
type QuickSource struct {
	Drug  Drug    `json:"drug"`
	Route Route   `json:"route"`
	Dose  float64 `json:"dose"`
	// FreqHours is used only when frequency is included.
	FreqHours float64 `json:"freq_hours,omitempty"`
}

// QuickTarget is the drug, route and optional interval to convert into.
type QuickTarget struct {
	Drug      Drug    `json:"drug"`
	Route     Route   `json:"route"`
	FreqHours float64 `json:"freq_hours,omitempty"`
}

// QuickOptions controls a point-to-point conversion.
type QuickOptions struct {
	RotationOptions
	// IncludeFrequency reads the source as per-dose × frequency and reports
	// the target per dose. Otherwise both sides are daily totals.
	IncludeFrequency bool `json:"include_frequency"`
}

// QuickResult is the outcome of a point-to-point conversion.
type QuickResult struct {
	Outcome
	SourceOME  float64           `json:"source_ome"`
	Conversion *ConversionResult `json:"conversion,omitempty"`
	PerDose    *DoseRange        `json:"per_dose,omitempty"`
	Text       string            `json:"text"`
	Steps      []string          `json:"steps"`
}

// QuickConvert converts one source dose directly into a target drug/route
// using the same OME and rotation arithmetic as the home regimen path.
func QuickConvert(src QuickSource, dst QuickTarget, opts QuickOptions) QuickResult {
	res := QuickResult{Steps: []string{}}

	if src.Drug.IsNonlinear() {
		res.Outcome = unsupported("nonlinear source agent")
		res.Text = fmt.Sprintf("%s cannot be used as a conversion source (no linear OME). Consult pain/palliative.", src.Drug.Label())
		return res
	}
	if src.Dose <= 0 {
		res.Outcome = needsInput("source dose required")
		res.Text = "Enter a source dose."
		return res
	}

	var ome float64
	var out Outcome
	if src.Drug == FentanylTDS {
		ome, out = MMEOf(src.Drug, src.Route, src.Dose)
		if out.OK() {
			res.Steps = append(res.Steps, fmt.Sprintf("0) Input: %s mcg/h patch = %.1f OME/day", FormatDose(src.Dose), ome))
		}
	} else {
		perDay := 1
		if opts.IncludeFrequency {
			if src.FreqHours <= 0 {
				res.Outcome = needsInput("source frequency required")
				res.Text = "Enter source frequency."
				return res
			}
			perDay = dosesPerDay(src.FreqHours)
		}
		ome, out = MMEOf(src.Drug, src.Route, src.Dose*float64(perDay))
		if out.OK() {
			factor, _ := MMEFactor(src.Drug)
			res.Steps = append(res.Steps, fmt.Sprintf("0) Input: %s mg × %d/day × %s = %.1f OME/day",
				FormatDose(src.Dose), perDay, FormatDose(factor), ome))
		}
	}
	if !out.OK() {
		res.Outcome = out
		res.Text = fmt.Sprintf("Cannot compute OME for %s: %s.", src.Drug.Label(), out.Reason)
		return res
	}
	res.SourceOME = ome

	conv := RotateToTarget(ome, dst.Drug, dst.Route, opts.RotationOptions)
	res.Conversion = &conv
	res.Steps = append(res.Steps, conv.Notes...)
	res.Outcome = conv.Outcome

	switch {
	case conv.FentanylPatchMcgHr != nil:
		res.Text = fmt.Sprintf("Fentanyl patch ~%s mcg/h", formatPatchRange(*conv.FentanylPatchMcgHr))
		return res
	case conv.Range == nil:
		res.Text = conv.Notes[len(conv.Notes)-1]
		return res
	}

	daily := *conv.Range
	res.Steps = append(res.Steps, fmt.Sprintf("4) Daily range of target drug: %s mg/day", formatRange(daily.Low, daily.High)))

	if !opts.IncludeFrequency {
		res.Steps = append(res.Steps, "5) Frequency not included: reporting total daily dose.")
		res.Text = fmt.Sprintf("%s %s mg/day %s", dst.Drug.Label(), formatRange(daily.Low, daily.High), dst.Route.Label())
		return res
	}
	if dst.FreqHours <= 0 {
		res.Outcome = needsInput("target frequency required")
		res.Text = "Enter target frequency."
		return res
	}

	perDay := dosesPerDay(dst.FreqHours)
	per := DoseRange{
		Low:  RoundTo(daily.Low/float64(perDay), 1),
		High: RoundTo(daily.High/float64(perDay), 1),
	}
	res.PerDose = &per
	res.Steps = append(res.Steps, fmt.Sprintf("5) Divide by %d doses/day: %s mg per dose (exact, 0.1 mg precision).",
		perDay, formatRange(per.Low, per.High)))
	res.Text = fmt.Sprintf("%s %s mg %s q%sh", dst.Drug.Label(), formatRange(per.Low, per.High),
		dst.Route.Label(), FormatDose(dst.FreqHours))
	return res
}
