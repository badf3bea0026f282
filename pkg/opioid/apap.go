package opioid

// APAPLevel classifies a daily acetaminophen total against the thresholds.
type APAPLevel string

const (
	APAPLevelOK          APAPLevel = "ok"
	APAPLevelCaution     APAPLevel = "caution"
	APAPLevelMaxExceeded APAPLevel = "max_exceeded"
)

// ClassifyAPAP returns the threshold band for a daily APAP total in mg.
func ClassifyAPAP(mgPerDay float64) APAPLevel {
	switch {
	case mgPerDay >= APAPMaxMgPerDay:
		return APAPLevelMaxExceeded
	case mgPerDay >= APAPCautionMgPerDay:
		return APAPLevelCaution
	default:
		return APAPLevelOK
	}
}

// APAPWarning returns an advisory string for a daily APAP total, or "" when
// the total is below the caution threshold. It never blocks a calculation.
func APAPWarning(mgPerDay float64) string {
	switch ClassifyAPAP(mgPerDay) {
	case APAPLevelMaxExceeded:
		return "Max exceeded: APAP at or above 4000 mg/day"
	case APAPLevelCaution:
		return "Caution: APAP at or above 3000 mg/day (max 4000)"
	default:
		return ""
	}
}
