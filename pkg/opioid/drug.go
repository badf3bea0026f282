// Package opioid implements opioid dose-equivalence arithmetic: daily dose
// normalization, oral morphine equivalents (OME), rotation to a target
// drug/route, PRN sizing by pain severity, and acetaminophen (APAP) exposure
// for combination tablets.
//
// Every function in this package is pure. Results carry an explicit Status so
// callers never have to infer meaning from zero values or empty strings.
package opioid

import (
	"errors"
	"fmt"
	"strings"
)

// Drug identifies one opioid product in the supported closed set.
type Drug string

const (
	Morphine        Drug = "morphine"
	Oxycodone       Drug = "oxycodone"
	Hydrocodone     Drug = "hydrocodone"
	Hydromorphone   Drug = "hydromorphone"
	Oxymorphone     Drug = "oxymorphone"
	Codeine         Drug = "codeine"
	Tramadol        Drug = "tramadol"
	Tapentadol      Drug = "tapentadol"
	FentanylTDS     Drug = "fentanyl_tds"
	Methadone       Drug = "methadone"
	Buprenorphine   Drug = "buprenorphine"
	OxycodoneAPAP   Drug = "oxycodone_apap"
	HydrocodoneAPAP Drug = "hydrocodone_apap"
)

// Route is an administration route.
type Route string

const (
	Oral        Route = "oral"
	IV          Route = "iv"
	Transdermal Route = "tds"
)

// Severity is a pain severity tier used to size PRN doses.
type Severity string

const (
	Moderate     Severity = "moderate"
	Severe       Severity = "severe"
	Breakthrough Severity = "breakthrough"
)

var (
	ErrUnknownDrug     = errors.New("unknown drug")
	ErrUnknownRoute    = errors.New("unknown route")
	ErrUnknownSeverity = errors.New("unknown severity")
)

// IsValid reports whether d is one of the supported drugs.
func (d Drug) IsValid() bool {
	_, ok := drugTable[d]
	return ok
}

// String returns the drug identifier.
func (d Drug) String() string {
	return string(d)
}

// Label returns the full display label, e.g. "Hydromorphone".
func (d Drug) Label() string {
	if info, ok := drugTable[d]; ok {
		return info.label
	}
	return string(d)
}

// Short returns the abbreviated label used in order text, e.g. "HM".
func (d Drug) Short() string {
	if info, ok := drugTable[d]; ok {
		return info.short
	}
	return string(d)
}

// IsCombination reports whether d is an opioid/acetaminophen tablet.
func (d Drug) IsCombination() bool {
	info, ok := drugTable[d]
	return ok && info.base != ""
}

// BaseOpioid returns the opioid component of a combination product, or d itself.
func (d Drug) BaseOpioid() Drug {
	if info, ok := drugTable[d]; ok && info.base != "" {
		return info.base
	}
	return d
}

// IsNonlinear reports whether d has no safe linear morphine equivalence.
func (d Drug) IsNonlinear() bool {
	return d == Methadone || d == Buprenorphine
}

// AllowedRoutes returns the routes selectable for d.
func (d Drug) AllowedRoutes() []Route {
	info, ok := drugTable[d]
	if !ok {
		return nil
	}
	routes := make([]Route, len(info.routes))
	copy(routes, info.routes)
	return routes
}

// RouteAllowed reports whether r is a valid route for d.
func (d Drug) RouteAllowed(r Route) bool {
	info, ok := drugTable[d]
	if !ok {
		return false
	}
	for _, allowed := range info.routes {
		if allowed == r {
			return true
		}
	}
	return false
}

// IsValid reports whether r is a supported route.
func (r Route) IsValid() bool {
	_, ok := routeLabels[r]
	return ok
}

// String returns the route identifier.
func (r Route) String() string {
	return string(r)
}

// Label returns the clinical route label, e.g. "PO" or "IV/SC".
func (r Route) Label() string {
	if label, ok := routeLabels[r]; ok {
		return label
	}
	return string(r)
}

// IsValid reports whether s is a supported severity tier.
func (s Severity) IsValid() bool {
	_, ok := prnFractions[s]
	return ok
}

// String returns the severity identifier.
func (s Severity) String() string {
	return string(s)
}

// Label returns a capitalized display label for s.
func (s Severity) Label() string {
	switch s {
	case Moderate:
		return "Moderate"
	case Severe:
		return "Severe"
	case Breakthrough:
		return "Breakthrough"
	default:
		return string(s)
	}
}

// Severities returns the tiers in display order.
func Severities() []Severity {
	return []Severity{Moderate, Severe, Breakthrough}
}

// Drugs returns every supported drug in display order.
func Drugs() []Drug {
	drugs := make([]Drug, len(drugOrder))
	copy(drugs, drugOrder)
	return drugs
}

var drugAliases = map[string]Drug{
	"fentanyl":    FentanylTDS,
	"fentanyl_td": FentanylTDS,
	"percocet":    OxycodoneAPAP,
	"norco":       HydrocodoneAPAP,
	"vicodin":     HydrocodoneAPAP,
	"dilaudid":    Hydromorphone,
}

var routeAliases = map[string]Route{
	"po":          Oral,
	"iv/sc":       IV,
	"ivsc":        IV,
	"sc":          IV,
	"td":          Transdermal,
	"transdermal": Transdermal,
}

// ParseDrug resolves a drug identifier or common alias.
func ParseDrug(s string) (Drug, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if d := Drug(key); d.IsValid() {
		return d, nil
	}
	if d, ok := drugAliases[key]; ok {
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDrug, s)
}

// ParseRoute resolves a route identifier or clinical abbreviation.
func ParseRoute(s string) (Route, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if r := Route(key); r.IsValid() {
		return r, nil
	}
	if r, ok := routeAliases[key]; ok {
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRoute, s)
}

// ParseSeverity resolves a severity tier identifier.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if sev.IsValid() {
		return sev, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSeverity, s)
}
