package opioid

// Status classifies every calculator result.
type Status string

const (
	// StatusOK means the value fields are populated.
	StatusOK Status = "ok"
	// StatusNeedsMoreInput means the input is incomplete. Not an error.
	StatusNeedsMoreInput Status = "needs_more_input"
	// StatusUnsupported means the request is refused, e.g. a nonlinear agent.
	StatusUnsupported Status = "unsupported"
	// StatusMissingReferenceData means no factor exists for a drug/route pair.
	StatusMissingReferenceData Status = "missing_reference_data"
)

// Outcome is embedded in every result type.
type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// OK reports whether the result carries a computed value.
func (o Outcome) OK() bool {
	return o.Status == StatusOK
}

func okOutcome() Outcome {
	return Outcome{Status: StatusOK}
}

func needsInput(reason string) Outcome {
	return Outcome{Status: StatusNeedsMoreInput, Reason: reason}
}

func unsupported(reason string) Outcome {
	return Outcome{Status: StatusUnsupported, Reason: reason}
}

func missingData(reason string) Outcome {
	return Outcome{Status: StatusMissingReferenceData, Reason: reason}
}

// DoseRange is a low/high pair in mg (per day or per dose, by context).
type DoseRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// PatchRange is a low/high pair of fentanyl patch strengths in mcg/h.
type PatchRange struct {
	Low  int `json:"low"`
	High int `json:"high"`
}
