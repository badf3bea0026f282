package opioid

import "fmt"

// MMEOf returns the oral morphine equivalent of a daily dose.
//
// For transdermal fentanyl, amount is the patch rate in mcg/h and every
// 25 mcg/h counts as 75 OME/day. Methadone and buprenorphine are unsupported.
func MMEOf(d Drug, r Route, amount float64) (float64, Outcome) {
	if !d.IsValid() {
		return 0, unsupported(fmt.Sprintf("unknown drug %q", d))
	}
	if !d.RouteAllowed(r) {
		return 0, unsupported(fmt.Sprintf("%s is not available %s", d.Label(), r.Label()))
	}
	if d.IsNonlinear() {
		return 0, unsupported("nonlinear agent, specialist conversion required")
	}
	if amount < 0 {
		return 0, needsInput("dose must not be negative")
	}
	if d == FentanylTDS {
		return amount / FentanylMcgHrUnit * FentanylOMEPerUnit, okOutcome()
	}
	factor, ok := MMEFactor(d)
	if !ok {
		return 0, missingData(fmt.Sprintf("missing conversion factor for %s", d.Label()))
	}
	return amount * factor, okOutcome()
}
