package opioid

import (
	"fmt"
	"strings"
)

// Adjuncts are the multimodal (non-opioid) additions to a pain plan.
type Adjuncts struct {
	General     bool `json:"general,omitempty"`
	Neuropathic bool `json:"neuropathic,omitempty"`
	Spasm       bool `json:"spasm,omitempty"`
	Localized   bool `json:"localized,omitempty"`
}

var adjunctText = []struct {
	pick func(Adjuncts) bool
	text string
}{
	{func(a Adjuncts) bool { return a.General }, "Add scheduled Tylenol 650–1000 mg PO q6h or NSAIDs"},
	{func(a Adjuncts) bool { return a.Neuropathic }, "Add Gabapentin 100–300 mg PO q8–12h"},
	{func(a Adjuncts) bool { return a.Spasm }, "Consider Methocarbamol 500 mg PO q8h for PRN spasm"},
	{func(a Adjuncts) bool { return a.Localized }, "Add Lidocaine 5% patch to affected areas up to 12 h/day"},
}

// PlanInput gathers the pieces of an assessment-and-plan pain block.
type PlanInput struct {
	Scheduled       *ScheduledRegimen `json:"scheduled,omitempty"`
	HomeMedications []HomeMedication  `json:"home_medications,omitempty"`
	// ContinueER is nil when undecided, true to continue home ER/LA, false to hold.
	ContinueER *bool           `json:"continue_er,omitempty"`
	PRN        []PRNSuggestion `json:"prn,omitempty"`
	Adjuncts   Adjuncts        `json:"adjuncts"`
}

// BuildPainPlan renders the Pain Management plan text.
func BuildPainPlan(in PlanInput) string {
	var b strings.Builder
	b.WriteString("# Pain Management\nPlan:\n")
	b.WriteString("1. " + scheduledLine(in) + "\n")

	b.WriteString("2. For moderate, severe, and breakthrough pain:\n")
	for _, sev := range Severities() {
		text := "—"
		for _, s := range in.PRN {
			if s.Severity == sev && s.OK() && s.Text != "" {
				text = s.Text
				break
			}
		}
		fmt.Fprintf(&b, "> %s: %s\n", sev.Label(), text)
	}

	b.WriteString("3. Multimodal regimen\n")
	selected := false
	for _, adj := range adjunctText {
		if adj.pick(in.Adjuncts) {
			b.WriteString(">  * " + adj.text + "\n")
			selected = true
		}
	}
	if !selected {
		b.WriteString(">  * None selected\n")
	}
	return b.String()
}

func scheduledLine(in PlanInput) string {
	var parts []string
	if in.Scheduled != nil && in.Scheduled.OK() && in.Scheduled.Text != "" {
		parts = append(parts, in.Scheduled.Text)
	}
	if in.ContinueER != nil && *in.ContinueER {
		for _, m := range in.HomeMedications {
			if m.ExtendedRelease && !m.PRN && m.Drug != "" && m.Dose > 0 {
				parts = append(parts, homeERText(m))
			}
		}
	}
	switch {
	case len(parts) > 0:
		return "Continue " + strings.Join(parts, " + ")
	case in.ContinueER != nil && !*in.ContinueER:
		return "Scheduled Opioid: Held (home ER/LA held, no new basal ordered)"
	default:
		return "Scheduled Opioid: None / Not Calculated"
	}
}

func homeERText(m HomeMedication) string {
	unit := "mg"
	if m.Drug == FentanylTDS {
		unit = "mcg/h"
	}
	text := fmt.Sprintf("home %s ER/LA %s %s %s", m.Drug.Short(), FormatDose(m.Dose), unit, m.Route.Label())
	if m.FreqHours > 0 {
		text += fmt.Sprintf(" q%sh", FormatDose(m.FreqHours))
	}
	return text
}
