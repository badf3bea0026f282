package opioid

// Acetaminophen daily thresholds in mg.
const (
	APAPCautionMgPerDay = 3000.0
	APAPMaxMgPerDay     = 4000.0
)

// DefaultAPAPPerTabletMg is assumed for combination tablets when the
// acetaminophen content was not entered. Callers may override it.
const DefaultAPAPPerTabletMg = 325.0

// Fentanyl patch equivalence: each 25 mcg/h is 60 to 90 OME/day, 75 at midpoint.
const (
	FentanylMcgHrUnit       = 25.0
	FentanylOMEPerUnit      = 75.0
	FentanylOMEPerUnitLow   = 60.0
	FentanylOMEPerUnitHigh  = 90.0
	frailFentanylHighFactor = 0.75
)

// MaxCrossTolerancePct bounds the cross-tolerance reduction.
const MaxCrossTolerancePct = 95.0

// Rotation range multipliers applied to the calculated target daily dose.
const (
	standardLowFactor  = 0.9
	standardHighFactor = 1.1
	frailLowFactor     = 0.75
	frailHighFactor    = 0.9
)

// Tablet is one real-world combination tablet strength.
type Tablet struct {
	OpioidMg         float64 `json:"opioid_mg"`
	APAPMg           float64 `json:"apap_mg"`
	MaxTabletsPerDay int     `json:"max_tablets_per_day"`
}

type drugInfo struct {
	label   string
	short   string
	routes  []Route
	mme     float64
	hasMME  bool
	target  map[Route]float64
	base    Drug
	tablets []Tablet
}

var drugOrder = []Drug{
	Morphine, Oxycodone, Hydrocodone, Hydromorphone, Oxymorphone, Codeine,
	Tramadol, Tapentadol, FentanylTDS, Methadone, Buprenorphine,
	OxycodoneAPAP, HydrocodoneAPAP,
}

var drugTable = map[Drug]drugInfo{
	Morphine: {
		label: "Morphine", short: "MS", routes: []Route{Oral, IV},
		mme: 1, hasMME: true, target: map[Route]float64{Oral: 1, IV: 3},
	},
	Oxycodone: {
		label: "Oxycodone", short: "Oxy", routes: []Route{Oral},
		mme: 1.5, hasMME: true, target: map[Route]float64{Oral: 1.5},
	},
	Hydrocodone: {
		label: "Hydrocodone", short: "Hydro", routes: []Route{Oral},
		mme: 1, hasMME: true, target: map[Route]float64{Oral: 1},
	},
	Hydromorphone: {
		label: "Hydromorphone", short: "HM", routes: []Route{Oral, IV},
		mme: 4, hasMME: true, target: map[Route]float64{Oral: 4, IV: 20},
	},
	Oxymorphone: {
		label: "Oxymorphone", short: "OxyM", routes: []Route{Oral},
		mme: 3, hasMME: true, target: map[Route]float64{Oral: 3},
	},
	Codeine: {
		label: "Codeine", short: "Codeine", routes: []Route{Oral},
		mme: 0.15, hasMME: true, target: map[Route]float64{Oral: 0.15},
	},
	Tramadol: {
		label: "Tramadol", short: "Tram", routes: []Route{Oral},
		mme: 0.1, hasMME: true, target: map[Route]float64{Oral: 0.1},
	},
	Tapentadol: {
		label: "Tapentadol", short: "Tap", routes: []Route{Oral},
		mme: 0.4, hasMME: true, target: map[Route]float64{Oral: 0.4},
	},
	FentanylTDS: {
		label: "Fentanyl (transdermal)", short: "Fentanyl", routes: []Route{Transdermal},
	},
	Methadone: {
		label: "Methadone", short: "Methadone", routes: []Route{Oral},
	},
	Buprenorphine: {
		label: "Buprenorphine", short: "Bupe", routes: []Route{Oral},
	},
	OxycodoneAPAP: {
		label: "Oxycodone/APAP (Percocet)", short: "Oxy/APAP", routes: []Route{Oral},
		mme: 1.5, hasMME: true, target: map[Route]float64{Oral: 1.5}, base: Oxycodone,
		// Sorted by opioid mg, then APAP mg.
		tablets: []Tablet{
			{OpioidMg: 2.5, APAPMg: 325, MaxTabletsPerDay: 12},
			{OpioidMg: 5, APAPMg: 325, MaxTabletsPerDay: 12},
			{OpioidMg: 7.5, APAPMg: 325, MaxTabletsPerDay: 8},
			{OpioidMg: 10, APAPMg: 325, MaxTabletsPerDay: 6},
		},
	},
	HydrocodoneAPAP: {
		label: "Hydrocodone/APAP (Norco)", short: "Hydro/APAP", routes: []Route{Oral},
		mme: 1, hasMME: true, target: map[Route]float64{Oral: 1}, base: Hydrocodone,
		tablets: []Tablet{
			{OpioidMg: 5, APAPMg: 300, MaxTabletsPerDay: 8},
			{OpioidMg: 5, APAPMg: 325, MaxTabletsPerDay: 8},
			{OpioidMg: 7.5, APAPMg: 300, MaxTabletsPerDay: 6},
			{OpioidMg: 7.5, APAPMg: 325, MaxTabletsPerDay: 6},
			{OpioidMg: 10, APAPMg: 300, MaxTabletsPerDay: 6},
			{OpioidMg: 10, APAPMg: 325, MaxTabletsPerDay: 6},
		},
	},
}

var routeLabels = map[Route]string{
	Oral:        "PO",
	IV:          "IV/SC",
	Transdermal: "Transdermal",
}

// fentanylPatches is ascending; nearest-patch ties resolve to the lower strength.
var fentanylPatches = []int{12, 25, 37, 50, 62, 75, 100}

type fractionPair struct {
	low  float64
	high float64
}

var prnFractions = map[Severity]fractionPair{
	Moderate:     {low: 0.10, high: 0.10},
	Severe:       {low: 0.15, high: 0.15},
	Breakthrough: {low: 0.10, high: 0.20},
}

type naiveKey struct {
	drug     Drug
	route    Route
	severity Severity
}

// Opioid-naive starting doses in mg per dose. Breakthrough uses the severe row.
var naiveStartingDoses = map[naiveKey]DoseRange{
	{Oxycodone, Oral, Moderate}:     {Low: 5, High: 10},
	{Oxycodone, Oral, Severe}:       {Low: 10, High: 15},
	{Hydromorphone, IV, Moderate}:   {Low: 0.2, High: 0.4},
	{Hydromorphone, IV, Severe}:     {Low: 0.4, High: 0.8},
	{Hydromorphone, Oral, Moderate}: {Low: 2, High: 4},
	{Hydromorphone, Oral, Severe}:   {Low: 4, High: 6},
	{Morphine, Oral, Moderate}:      {Low: 5, High: 10},
	{Morphine, Oral, Severe}:        {Low: 10, High: 15},
	{Morphine, IV, Moderate}:        {Low: 1, High: 2},
	{Morphine, IV, Severe}:          {Low: 2, High: 4},
}

// MMEFactor returns the oral morphine equivalence factor for d.
// Fentanyl, methadone and buprenorphine have none.
func MMEFactor(d Drug) (float64, bool) {
	info, ok := drugTable[d]
	if !ok || !info.hasMME {
		return 0, false
	}
	return info.mme, true
}

// TargetFactor returns the OME-per-mg factor used when converting into d by
// route r. A route missing from the table falls back to the oral factor.
func TargetFactor(d Drug, r Route) (float64, bool) {
	info, ok := drugTable[d]
	if !ok || info.target == nil {
		return 0, false
	}
	if f, ok := info.target[r]; ok {
		return f, true
	}
	if f, ok := info.target[Oral]; ok {
		return f, true
	}
	return 0, false
}

// FentanylPatchStrengths returns the available patch strengths in mcg/h.
func FentanylPatchStrengths() []int {
	patches := make([]int, len(fentanylPatches))
	copy(patches, fentanylPatches)
	return patches
}

// PRNFractions returns the low and high fraction of the target daily dose
// used for one PRN dose at severity s.
func PRNFractions(s Severity) (low, high float64, ok bool) {
	pair, ok := prnFractions[s]
	return pair.low, pair.high, ok
}

// CombinationTablets returns the tablet strengths for a combination product.
func CombinationTablets(d Drug) []Tablet {
	info, ok := drugTable[d]
	if !ok || len(info.tablets) == 0 {
		return nil
	}
	tablets := make([]Tablet, len(info.tablets))
	copy(tablets, info.tablets)
	return tablets
}

// NaiveStartingDose returns the fixed opioid-naive per-dose range.
func NaiveStartingDose(d Drug, r Route, s Severity) (DoseRange, bool) {
	if s == Breakthrough {
		s = Severe
	}
	dose, ok := naiveStartingDoses[naiveKey{drug: d, route: r, severity: s}]
	return dose, ok
}
