package opioid

import (
	"math"
	"strconv"
)

// gridEpsilon absorbs float error before ceiling, so 0.4/0.2 stays on grid 2.
const gridEpsilon = 1e-9

type roundingRule struct {
	increment float64
	minimum   float64
}

var perDoseRounding = map[Drug]map[Route]roundingRule{
	Hydromorphone: {
		IV:   {increment: 0.2, minimum: 0.2},
		Oral: {increment: 2, minimum: 2},
	},
	Oxycodone: {
		Oral: {increment: 5, minimum: 5},
	},
	Morphine: {
		IV: {increment: 1, minimum: 1},
	},
}

// RoundTo rounds x half away from zero to the given number of decimals.
func RoundTo(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}

// RoundPerDose aligns a per-dose mg value to available product increments.
// Drugs with a defined increment round up to it and never go below the
// minimum; everything else rounds to the nearest 0.1 mg.
func RoundPerDose(d Drug, r Route, mg float64) float64 {
	rule, ok := perDoseRounding[d][r]
	if !ok {
		return RoundTo(mg, 1)
	}
	v := math.Ceil(mg/rule.increment-gridEpsilon) * rule.increment
	if v < rule.minimum {
		v = rule.minimum
	}
	return RoundTo(v, 2)
}

// NearestPatch returns the available fentanyl patch closest to mcgHr.
func NearestPatch(mcgHr float64) int {
	best := fentanylPatches[0]
	bestDiff := math.Abs(mcgHr - float64(best))
	for _, p := range fentanylPatches[1:] {
		if diff := math.Abs(mcgHr - float64(p)); diff < bestDiff {
			best, bestDiff = p, diff
		}
	}
	return best
}

// FormatDose prints x to at most two decimals, without a trailing ".0".
func FormatDose(x float64) string {
	v := RoundTo(x, 2)
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatRange prints "lo" when both ends match, else "lo–hi".
func formatRange(lo, hi float64) string {
	if FormatDose(lo) == FormatDose(hi) {
		return FormatDose(lo)
	}
	return FormatDose(lo) + "–" + FormatDose(hi)
}

func formatPatchRange(p PatchRange) string {
	if p.Low == p.High {
		return strconv.Itoa(p.Low)
	}
	return strconv.Itoa(p.Low) + "–" + strconv.Itoa(p.High)
}

// ClampFrequency rounds a dosing interval to whole hours within [2, 12].
func ClampFrequency(freqHours float64) int {
	f := int(math.Round(freqHours))
	if f < 2 {
		return 2
	}
	if f > 12 {
		return 12
	}
	return f
}

// dosesPerDay returns max(1, round(24 / max(1, freqHours))).
func dosesPerDay(freqHours float64) int {
	n := int(math.Round(24 / math.Max(1, freqHours)))
	if n < 1 {
		return 1
	}
	return n
}
