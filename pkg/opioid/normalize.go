package opioid

import "fmt"

// HomeMedication is one line of a patient's home regimen.
//
// Dose is mg per dose, or the patch rate in mcg/h for transdermal fentanyl.
// A scheduled entry with no FreqHours is read as a daily total.
type HomeMedication struct {
	Drug              Drug    `json:"drug"`
	Route             Route   `json:"route"`
	Dose              float64 `json:"dose"`
	FreqHours         float64 `json:"freq_hours,omitempty"`
	PRN               bool    `json:"prn,omitempty"`
	AvgPRNDosesPerDay float64 `json:"avg_prn_doses_per_day,omitempty"`
	ExtendedRelease   bool    `json:"extended_release,omitempty"`
	APAPPerTabletMg   float64 `json:"apap_per_tablet_mg,omitempty"`
}

// NormalizeOptions carries defaults applied during normalization.
type NormalizeOptions struct {
	// DefaultAPAPPerTabletMg replaces DefaultAPAPPerTabletMg when positive.
	DefaultAPAPPerTabletMg float64 `json:"default_apap_per_tablet_mg,omitempty"`
}

func (o NormalizeOptions) apapPerTablet() float64 {
	if o.DefaultAPAPPerTabletMg > 0 {
		return o.DefaultAPAPPerTabletMg
	}
	return DefaultAPAPPerTabletMg
}

// NormalizedDose is one entry reduced to a daily figure.
type NormalizedDose struct {
	Outcome
	// DailyOpioid is mg/day, or mcg/h for a fentanyl patch.
	DailyOpioid   float64 `json:"daily_opioid"`
	DailyAPAPMg   float64 `json:"daily_apap_mg,omitempty"`
	DosesPerDay   float64 `json:"doses_per_day,omitempty"`
	DoseType      string  `json:"dose_type"`
	APAPDefaulted bool    `json:"apap_defaulted,omitempty"`
}

// NormalizeDailyDose converts one home medication entry into a daily dose.
func NormalizeDailyDose(m HomeMedication, opts NormalizeOptions) NormalizedDose {
	if m.Drug == "" || m.Route == "" || m.Dose <= 0 {
		return NormalizedDose{Outcome: needsInput("drug, route and dose are required")}
	}

	if m.Drug == FentanylTDS {
		return NormalizedDose{
			Outcome:     okOutcome(),
			DailyOpioid: m.Dose,
			DoseType:    "patch (mcg/h)",
		}
	}

	var n NormalizedDose
	switch {
	case m.PRN:
		if m.AvgPRNDosesPerDay <= 0 {
			return NormalizedDose{
				Outcome:  needsInput("average PRN doses/day needed for calculation"),
				DoseType: "PRN",
			}
		}
		n.DosesPerDay = m.AvgPRNDosesPerDay
		n.DoseType = fmt.Sprintf("PRN (avg %s/day)", FormatDose(m.AvgPRNDosesPerDay))
	case m.FreqHours > 0:
		n.DosesPerDay = 24 / m.FreqHours
		n.DoseType = fmt.Sprintf("Scheduled q%sh", FormatDose(m.FreqHours))
	default:
		n.DosesPerDay = 1
		n.DoseType = "Scheduled (Daily dose assumed)"
	}
	if m.ExtendedRelease && !m.PRN {
		n.DoseType += " ER/LA"
	}

	n.Outcome = okOutcome()
	n.DailyOpioid = m.Dose * n.DosesPerDay

	if m.Drug.IsCombination() {
		perTab := m.APAPPerTabletMg
		if perTab <= 0 {
			perTab = opts.apapPerTablet()
			n.APAPDefaulted = true
		}
		n.DailyAPAPMg = perTab * n.DosesPerDay
	}
	return n
}
