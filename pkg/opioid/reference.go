package opioid

// EquianalgesicRow is one display row of the classic equianalgesic chart.
// Values are strings because several cells are intentionally blank ("—").
// These rows are reference material only and never feed the arithmetic.
type EquianalgesicRow struct {
	Drug         string `json:"drug"`
	OralMg       string `json:"oral_mg"`
	ParenteralMg string `json:"parenteral_mg"`
}

var equianalgesic = []EquianalgesicRow{
	{Drug: "Morphine", OralMg: "30", ParenteralMg: "10"},
	{Drug: "Hydromorphone", OralMg: "7.5", ParenteralMg: "1.5"},
	{Drug: "Oxymorphone", OralMg: "10", ParenteralMg: "1"},
	{Drug: "Meperidine", OralMg: "300", ParenteralMg: "75"},
	{Drug: "Fentanyl", OralMg: "—", ParenteralMg: "0.1"},
	{Drug: "Oxycodone", OralMg: "20", ParenteralMg: "—"},
	{Drug: "Hydrocodone", OralMg: "30", ParenteralMg: "—"},
	{Drug: "Codeine", OralMg: "120", ParenteralMg: "—"},
}

// EquianalgesicTable returns the equianalgesic chart rows.
func EquianalgesicTable() []EquianalgesicRow {
	rows := make([]EquianalgesicRow, len(equianalgesic))
	copy(rows, equianalgesic)
	return rows
}

// DrugReference describes one drug's reference data.
type DrugReference struct {
	Drug          Drug              `json:"drug"`
	Label         string            `json:"label"`
	Short         string            `json:"short"`
	Routes        []Route           `json:"routes"`
	MMEFactor     *float64          `json:"mme_factor"`
	TargetFactors map[Route]float64 `json:"target_factors,omitempty"`
	Combination   bool              `json:"combination,omitempty"`
	Tablets       []Tablet          `json:"tablets,omitempty"`
}

// Fractions is a severity tier's low/high PRN fraction.
type Fractions struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Reference is a snapshot of every lookup table, suitable for serialization.
type Reference struct {
	Drugs                  []DrugReference        `json:"drugs"`
	RouteLabels            map[Route]string       `json:"route_labels"`
	FentanylPatches        []int                  `json:"fentanyl_patches_mcg_hr"`
	PRNFractions           map[Severity]Fractions `json:"prn_fractions"`
	APAPCautionMgPerDay    float64                `json:"apap_caution_mg_per_day"`
	APAPMaxMgPerDay        float64                `json:"apap_max_mg_per_day"`
	DefaultAPAPPerTabletMg float64                `json:"default_apap_per_tablet_mg"`
	ScheduledFrequencies   []int                  `json:"scheduled_frequencies_hours"`
	Equianalgesic          []EquianalgesicRow     `json:"equianalgesic"`
}

// ReferenceTables returns a fresh copy of all reference data.
func ReferenceTables() Reference {
	ref := Reference{
		RouteLabels:            make(map[Route]string, len(routeLabels)),
		FentanylPatches:        FentanylPatchStrengths(),
		PRNFractions:           make(map[Severity]Fractions, len(prnFractions)),
		APAPCautionMgPerDay:    APAPCautionMgPerDay,
		APAPMaxMgPerDay:        APAPMaxMgPerDay,
		DefaultAPAPPerTabletMg: DefaultAPAPPerTabletMg,
		ScheduledFrequencies:   ScheduledFrequencies(),
		Equianalgesic:          EquianalgesicTable(),
	}
	for r, label := range routeLabels {
		ref.RouteLabels[r] = label
	}
	for s, f := range prnFractions {
		ref.PRNFractions[s] = Fractions{Low: f.low, High: f.high}
	}
	for _, d := range drugOrder {
		info := drugTable[d]
		dr := DrugReference{
			Drug:        d,
			Label:       info.label,
			Short:       info.short,
			Routes:      d.AllowedRoutes(),
			Combination: d.IsCombination(),
			Tablets:     CombinationTablets(d),
		}
		if f, ok := MMEFactor(d); ok {
			dr.MMEFactor = &f
		}
		if len(info.target) > 0 {
			dr.TargetFactors = make(map[Route]float64, len(info.target))
			for r, f := range info.target {
				dr.TargetFactors[r] = f
			}
		}
		ref.Drugs = append(ref.Drugs, dr)
	}
	return ref
}
