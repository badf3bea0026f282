package opioid

import (
	"fmt"
	"math"
)

// Intensity adjustment bounds in percent.
const (
	MinIntensityPct = -50.0
	MaxIntensityPct = 100.0
)

// ScheduledOptions controls a new basal (scheduled) regimen.
type ScheduledOptions struct {
	RotationOptions
	// IntensityPct scales home OME before rotation, clamped to [-50, 100].
	IntensityPct float64 `json:"intensity_pct,omitempty"`
	OpioidNaive  bool    `json:"opioid_naive,omitempty"`
}

// ScheduledRegimen is a suggested scheduled dose of the target drug.
type ScheduledRegimen struct {
	Outcome
	Drug        Drug              `json:"drug"`
	Route       Route             `json:"route"`
	FreqHours   float64           `json:"freq_hours,omitempty"`
	FromOME     float64           `json:"from_ome"`
	DosesPerDay int               `json:"doses_per_day,omitempty"`
	PerDose     *DoseRange        `json:"per_dose,omitempty"`
	Patch       *PatchRange       `json:"patch,omitempty"`
	Conversion  *ConversionResult `json:"conversion,omitempty"`
	Text        string            `json:"text"`
	Trace       []string          `json:"trace"`
}

// ScheduledFrequencies returns the selectable scheduled intervals in hours.
func ScheduledFrequencies() []int {
	return []int{2, 3, 4, 6, 8, 12}
}

// ClampIntensity bounds pct to [MinIntensityPct, MaxIntensityPct].
func ClampIntensity(pct float64) float64 {
	if math.IsNaN(pct) {
		return 0
	}
	return math.Min(MaxIntensityPct, math.Max(MinIntensityPct, pct))
}

// BuildScheduledRegimen converts the home OME, scaled by intensity, into a
// per-dose scheduled regimen of the target drug at freqHours.
func BuildScheduledRegimen(ome float64, d Drug, r Route, freqHours float64, opts ScheduledOptions) ScheduledRegimen {
	reg := ScheduledRegimen{Drug: d, Route: r, FreqHours: freqHours, Trace: []string{}}

	if opts.OpioidNaive {
		reg.Outcome = needsInput("opioid-naive patient")
		reg.Text = "Scheduled regimen not calculated for opioid-naïve patient."
		return reg
	}
	if ome <= 0 {
		reg.Outcome = needsInput("home regimen OME required")
		reg.Text = "Enter home regimen (OME > 0) to calculate a scheduled dose."
		return reg
	}

	pct := ClampIntensity(opts.IntensityPct)
	from := ome * (1 + pct/100)
	reg.FromOME = from
	reg.Trace = append(reg.Trace,
		fmt.Sprintf("1) Total home OME ≈ %.1f OME/day", ome),
		fmt.Sprintf("2) Intensity adjust: %.1f × (1 + %s%%) = %.1f OME/day", ome, FormatDose(pct), from),
	)

	conv := RotateToTarget(from, d, r, opts.RotationOptions)
	reg.Conversion = &conv
	reg.Outcome = conv.Outcome
	reg.Trace = append(reg.Trace, conv.Notes...)

	switch {
	case conv.FentanylPatchMcgHr != nil:
		reg.Patch = conv.FentanylPatchMcgHr
		reg.Text = fmt.Sprintf("%s %s mcg/h patch q72h", d.Label(), formatPatchRange(*conv.FentanylPatchMcgHr))
		return reg
	case conv.Range == nil:
		reg.Text = conv.Notes[len(conv.Notes)-1]
		return reg
	}

	if freqHours <= 0 {
		reg.Outcome = needsInput("scheduled frequency required")
		reg.Text = "Select a scheduled frequency."
		return reg
	}

	perDay := dosesPerDay(freqHours)
	per := DoseRange{
		Low:  RoundPerDose(d, r, conv.Range.Low/float64(perDay)),
		High: RoundPerDose(d, r, conv.Range.High/float64(perDay)),
	}
	reg.DosesPerDay = perDay
	reg.PerDose = &per
	reg.Trace = append(reg.Trace, fmt.Sprintf("4) Per dose: daily range ÷ %d doses/day, rounded to practical increments = %s mg",
		perDay, formatRange(per.Low, per.High)))
	reg.Text = fmt.Sprintf("%s %s mg %s q%sh", d.Label(), formatRange(per.Low, per.High), r.Label(), FormatDose(freqHours))
	return reg
}
