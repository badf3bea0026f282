package opioid

import (
	"fmt"
	"math"
)

// EntryResult is the per-entry breakdown produced by Aggregate.
type EntryResult struct {
	Index       int     `json:"index"`
	Drug        Drug    `json:"drug"`
	Route       Route   `json:"route"`
	DoseType    string  `json:"dose_type,omitempty"`
	DailyOpioid float64 `json:"daily_opioid"`
	DailyOME    float64 `json:"daily_ome"`
	DailyAPAPMg float64 `json:"daily_apap_mg,omitempty"`
	Outcome
}

// RegimenSummary is the aggregate of a home regimen.
type RegimenSummary struct {
	TotalOME    float64       `json:"total_ome"`
	TotalAPAPMg float64       `json:"total_apap_mg"`
	APAPLevel   APAPLevel     `json:"apap_level"`
	APAPLine    string        `json:"apap_line,omitempty"`
	Details     []string      `json:"details"`
	Notes       []string      `json:"notes"`
	Pending     []string      `json:"pending"`
	Entries     []EntryResult `json:"entries"`
}

// Lines returns the display lines: APAP tally first, then details and notes.
func (s RegimenSummary) Lines() []string {
	lines := make([]string, 0, len(s.Details)+len(s.Notes)+1)
	if s.APAPLine != "" {
		lines = append(lines, s.APAPLine)
	}
	lines = append(lines, s.Details...)
	return append(lines, s.Notes...)
}

// Aggregate sums OME and APAP across a home regimen. Incomplete entries are
// skipped; detail lines keep input order.
func Aggregate(meds []HomeMedication, opts NormalizeOptions) RegimenSummary {
	summary := RegimenSummary{
		Details: []string{},
		Notes:   []string{},
		Pending: []string{},
		Entries: make([]EntryResult, 0, len(meds)),
	}
	hasCombination := false

	for i, m := range meds {
		entry := EntryResult{Index: i, Drug: m.Drug, Route: m.Route}
		n := NormalizeDailyDose(m, opts)
		entry.DoseType = n.DoseType

		if !n.OK() {
			entry.Outcome = n.Outcome
			summary.Entries = append(summary.Entries, entry)
			if m.PRN && m.Drug != "" && m.Route != "" && m.Dose > 0 {
				summary.Pending = append(summary.Pending,
					fmt.Sprintf("%s %s PRN: %s", m.Drug.Short(), m.Route.Label(), n.Reason))
			}
			continue
		}

		entry.DailyOpioid = n.DailyOpioid
		entry.DailyAPAPMg = n.DailyAPAPMg
		if m.Drug.IsCombination() {
			hasCombination = true
			summary.TotalAPAPMg += n.DailyAPAPMg
		}

		ome, out := MMEOf(m.Drug, m.Route, n.DailyOpioid)
		entry.Outcome = out
		if !out.OK() {
			summary.Notes = append(summary.Notes, fmt.Sprintf("! %s %s %s: OME N/A (%s)",
				m.Drug.Short(), m.Route.Label(), n.DoseType, out.Reason))
			summary.Entries = append(summary.Entries, entry)
			continue
		}

		entry.DailyOME = ome
		summary.TotalOME += ome
		summary.Details = append(summary.Details, fmt.Sprintf("%s %s %s %s: ~%d OME/day",
			m.Drug.Short(), FormatDose(m.Dose), m.Route.Label(), n.DoseType, int(math.Round(ome))))
		summary.Entries = append(summary.Entries, entry)
	}

	summary.APAPLevel = ClassifyAPAP(summary.TotalAPAPMg)
	if hasCombination {
		summary.APAPLine = fmt.Sprintf("APAP/day: %d mg", int(math.Round(summary.TotalAPAPMg)))
		if warning := APAPWarning(summary.TotalAPAPMg); warning != "" {
			summary.APAPLine += " (" + warning + ")"
		}
	}
	return summary
}
