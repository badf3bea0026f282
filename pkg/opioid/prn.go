package opioid

import (
	"fmt"
	"strings"
)

// PRNOptions adjusts PRN sizing.
type PRNOptions struct {
	OpioidNaive bool `json:"opioid_naive,omitempty"`
	// PreferredAPAPPerTabletMg selects a tablet family, e.g. 300 or 325.
	PreferredAPAPPerTabletMg float64 `json:"preferred_apap_per_tablet_mg,omitempty"`
}

// PRNSelection is the drug, route and interval chosen for one severity tier.
type PRNSelection struct {
	Severity  Severity `json:"severity"`
	Drug      Drug     `json:"drug"`
	Route     Route    `json:"route"`
	FreqHours float64  `json:"freq_hours"`
}

// PRNSuggestion is one severity tier's as-needed dose.
type PRNSuggestion struct {
	Outcome
	Severity        Severity `json:"severity"`
	Drug            Drug     `json:"drug"`
	Route           Route    `json:"route"`
	FreqHours       int      `json:"freq_hours,omitempty"`
	Low             float64  `json:"low,omitempty"`
	High            float64  `json:"high,omitempty"`
	Text            string   `json:"text"`
	Note            string   `json:"note,omitempty"`
	FactorDefaulted bool     `json:"factor_defaulted,omitempty"`
	Tablet          *Tablet  `json:"tablet,omitempty"`
	DailyAPAPMg     float64  `json:"daily_apap_mg,omitempty"`
	APAPWarning     string   `json:"apap_warning,omitempty"`
	Trace           []string `json:"trace,omitempty"`
}

// SuggestPRN sizes one PRN dose for the given severity tier.
//
// The dose is a severity fraction of the target daily dose divided across
// the doses per day implied by the entered interval. The interval shown in
// the order text is clamped to [2, 12] hours.
func SuggestPRN(ome float64, d Drug, r Route, freqHours float64, sev Severity, opts PRNOptions) PRNSuggestion {
	s := PRNSuggestion{Severity: sev, Drug: d, Route: r}

	lowFrac, highFrac, ok := PRNFractions(sev)
	if !ok {
		s.Outcome = needsInput("select pain severity")
		s.Text = "Select pain severity"
		return s
	}
	if freqHours <= 0 {
		s.Outcome = needsInput("select PRN frequency")
		s.Text = "Select PRN frequency"
		return s
	}
	freq := ClampFrequency(freqHours)
	s.FreqHours = freq
	perDay := 24 / freqHours

	if opts.OpioidNaive {
		start, ok := NaiveStartingDose(d, r, sev)
		if !ok {
			s.Outcome = needsInput("no opioid-naive default for this drug/route")
			s.Text = "Select common drug/route for naïve defaults"
			return s
		}
		s.Outcome = okOutcome()
		s.Low, s.High = start.Low, start.High
		s.Text = prnText(d, r, start.Low, start.High, freq)
		s.Note = "Opioid-naïve starting dose"
		return s
	}

	if ome <= 0 {
		s.Outcome = needsInput("home regimen OME required")
		s.Text = "Enter home regimen to calculate suggestions."
		return s
	}

	if d == FentanylTDS || d.IsNonlinear() {
		s.Outcome = unsupported("not appropriate as PRN")
		s.Text = fmt.Sprintf("%s not suggested as PRN in this tool", d.Label())
		return s
	}

	if d.IsCombination() {
		return suggestCombinationPRN(s, ome, perDay, lowFrac, opts)
	}

	factor, ok := TargetFactor(d, r)
	if !ok || factor <= 0 {
		factor = 1
		s.FactorDefaulted = true
		s.Trace = append(s.Trace, fmt.Sprintf("No target factor for %s %s; using 1.", d.Label(), r.Label()))
	}
	targetDaily := ome / factor
	s.Low = RoundPerDose(d, r, targetDaily*lowFrac/perDay)
	s.High = RoundPerDose(d, r, targetDaily*highFrac/perDay)
	s.Outcome = okOutcome()
	s.Text = prnText(d, r, s.Low, s.High, freq)
	s.Note = fractionNote(lowFrac, highFrac)
	s.Trace = append(s.Trace,
		fmt.Sprintf("Target daily dose: %.1f OME / %s = %.1f mg/day", ome, FormatDose(factor), targetDaily),
		fmt.Sprintf("Per dose: %s of daily ÷ %s doses/day, rounded to %s mg",
			pctRange(lowFrac, highFrac), FormatDose(perDay), formatRange(s.Low, s.High)),
	)
	return s
}

func suggestCombinationPRN(s PRNSuggestion, ome, perDay, lowFrac float64, opts PRNOptions) PRNSuggestion {
	d := s.Drug
	factor, _ := TargetFactor(d, Oral)
	targetDaily := ome / factor
	needed := targetDaily * lowFrac / perDay

	tablet, ok := SelectTablet(d, needed, perDay, opts.PreferredAPAPPerTabletMg)
	if !ok {
		s.Outcome = unsupported("no tablet strength supports this frequency")
		s.Text = fmt.Sprintf("No %s tablet strength supports q%dh dosing", d.Label(), s.FreqHours)
		return s
	}

	s.Outcome = okOutcome()
	s.Tablet = &tablet
	s.Low, s.High = tablet.OpioidMg, tablet.OpioidMg
	s.DailyAPAPMg = tablet.APAPMg * perDay
	s.APAPWarning = APAPWarning(s.DailyAPAPMg)
	s.Text = fmt.Sprintf("%s %s/%s mg 1 tab %s q%dh PRN",
		d.Short(), FormatDose(tablet.OpioidMg), FormatDose(tablet.APAPMg),
		strings.ToLower(Oral.Label()), s.FreqHours)
	s.Note = fmt.Sprintf("%s of target daily dose; up to %s mg APAP/day from this PRN",
		pctRange(lowFrac, lowFrac), FormatDose(s.DailyAPAPMg))
	s.Trace = append(s.Trace,
		fmt.Sprintf("Target daily %s: %.1f OME / %s = %.1f mg/day", d.BaseOpioid().Label(), ome, FormatDose(factor), targetDaily),
		fmt.Sprintf("Needed per dose: %.2f mg; selected %s/%s tablet", needed, FormatDose(tablet.OpioidMg), FormatDose(tablet.APAPMg)),
	)
	if needed > tablet.OpioidMg {
		s.Trace = append(s.Trace, "Needed dose exceeds the strongest tablet available at this frequency.")
	}
	return s
}

// SelectTablet picks a combination tablet for a needed opioid mg per dose.
//
// Only strengths whose label maximum tablets/day covers perDay qualify. A
// preferred APAP strength narrows the choice when one of its tablets
// qualifies. The smallest strength covering needed wins; if none covers it,
// the strongest qualifying tablet is returned.
func SelectTablet(d Drug, needed, perDay, preferredAPAPMg float64) (Tablet, bool) {
	var candidates []Tablet
	for _, t := range CombinationTablets(d) {
		if float64(t.MaxTabletsPerDay) >= perDay-gridEpsilon {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return Tablet{}, false
	}

	if preferredAPAPMg > 0 {
		var preferred []Tablet
		for _, t := range candidates {
			if t.APAPMg == preferredAPAPMg {
				preferred = append(preferred, t)
			}
		}
		if len(preferred) > 0 {
			candidates = preferred
		}
	}

	// Tablets are sorted by opioid mg then APAP mg.
	for _, t := range candidates {
		if t.OpioidMg >= needed-gridEpsilon {
			return t, true
		}
	}
	strongest := candidates[len(candidates)-1]
	for _, t := range candidates {
		if t.OpioidMg == strongest.OpioidMg {
			return t, true
		}
	}
	return strongest, true
}

// SuggestPRNTable computes one suggestion per selection, in selection order.
func SuggestPRNTable(ome float64, selections []PRNSelection, opts PRNOptions) []PRNSuggestion {
	out := make([]PRNSuggestion, 0, len(selections))
	for _, sel := range selections {
		out = append(out, SuggestPRN(ome, sel.Drug, sel.Route, sel.FreqHours, sel.Severity, opts))
	}
	return out
}

func prnText(d Drug, r Route, low, high float64, freq int) string {
	return fmt.Sprintf("%s %s %s q%dh PRN", d.Short(), formatRange(low, high), strings.ToLower(r.Label()), freq)
}

func pctRange(low, high float64) string {
	return formatRange(low*100, high*100) + "%"
}

func fractionNote(low, high float64) string {
	return pctRange(low, high) + " of target daily dose"
}
