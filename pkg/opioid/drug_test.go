package opioid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDrug(t *testing.T) {
	tests := []struct {
		input    string
		expected Drug
	}{
		{"morphine", Morphine},
		{" Hydromorphone ", Hydromorphone},
		{"fentanyl", FentanylTDS},
		{"fentanyl_tds", FentanylTDS},
		{"Percocet", OxycodoneAPAP},
		{"norco", HydrocodoneAPAP},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := ParseDrug(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}

	_, err := ParseDrug("aspirin")
	assert.True(t, errors.Is(err, ErrUnknownDrug))
}

func TestParseRoute(t *testing.T) {
	for input, expected := range map[string]Route{
		"oral": Oral, "PO": Oral, "iv": IV, "IV/SC": IV, "tds": Transdermal, "transdermal": Transdermal,
	} {
		r, err := ParseRoute(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, r, input)
	}

	_, err := ParseRoute("rectal")
	assert.ErrorIs(t, err, ErrUnknownRoute)
}

func TestParseSeverity(t *testing.T) {
	s, err := ParseSeverity("Breakthrough")
	require.NoError(t, err)
	assert.Equal(t, Breakthrough, s)

	_, err = ParseSeverity("mild")
	assert.ErrorIs(t, err, ErrUnknownSeverity)
}

func TestDrugLabels(t *testing.T) {
	tests := []struct {
		drug  Drug
		label string
		short string
	}{
		{Morphine, "Morphine", "MS"},
		{Oxycodone, "Oxycodone", "Oxy"},
		{Hydrocodone, "Hydrocodone", "Hydro"},
		{Hydromorphone, "Hydromorphone", "HM"},
		{Oxymorphone, "Oxymorphone", "OxyM"},
		{Codeine, "Codeine", "Codeine"},
		{Tramadol, "Tramadol", "Tram"},
		{Tapentadol, "Tapentadol", "Tap"},
		{FentanylTDS, "Fentanyl (transdermal)", "Fentanyl"},
		{Methadone, "Methadone", "Methadone"},
		{Buprenorphine, "Buprenorphine", "Bupe"},
	}

	for _, tt := range tests {
		t.Run(string(tt.drug), func(t *testing.T) {
			assert.Equal(t, tt.label, tt.drug.Label())
			assert.Equal(t, tt.short, tt.drug.Short())
		})
	}
}

func TestRouteLabels(t *testing.T) {
	assert.Equal(t, "PO", Oral.Label())
	assert.Equal(t, "IV/SC", IV.Label())
	assert.Equal(t, "Transdermal", Transdermal.Label())
}

func TestAllowedRoutes(t *testing.T) {
	assert.Equal(t, []Route{Oral, IV}, Morphine.AllowedRoutes())
	assert.Equal(t, []Route{Oral, IV}, Hydromorphone.AllowedRoutes())
	assert.Equal(t, []Route{Transdermal}, FentanylTDS.AllowedRoutes())
	assert.Equal(t, []Route{Oral}, OxycodoneAPAP.AllowedRoutes())
	assert.False(t, Oxycodone.RouteAllowed(IV))
	assert.False(t, Drug("aspirin").RouteAllowed(Oral))

	// Callers must not be able to mutate the table.
	routes := Morphine.AllowedRoutes()
	routes[0] = Transdermal
	assert.Equal(t, Oral, Morphine.AllowedRoutes()[0])
}

func TestCombinationProducts(t *testing.T) {
	assert.True(t, OxycodoneAPAP.IsCombination())
	assert.True(t, HydrocodoneAPAP.IsCombination())
	assert.False(t, Oxycodone.IsCombination())
	assert.Equal(t, Oxycodone, OxycodoneAPAP.BaseOpioid())
	assert.Equal(t, Hydrocodone, HydrocodoneAPAP.BaseOpioid())
	assert.Equal(t, Morphine, Morphine.BaseOpioid())

	base, _ := MMEFactor(Oxycodone)
	combo, ok := MMEFactor(OxycodoneAPAP)
	require.True(t, ok)
	assert.Equal(t, base, combo)
}

func TestEveryAllowedPairHasTargetFactor(t *testing.T) {
	for _, d := range Drugs() {
		if d == FentanylTDS || d.IsNonlinear() {
			continue
		}
		for _, r := range d.AllowedRoutes() {
			f, ok := TargetFactor(d, r)
			assert.True(t, ok, "%s %s", d, r)
			assert.Greater(t, f, 0.0, "%s %s", d, r)
		}
	}
}

func TestTargetFactorFallback(t *testing.T) {
	f, ok := TargetFactor(Hydromorphone, IV)
	require.True(t, ok)
	assert.Equal(t, 20.0, f)

	// Oxycodone has no IV entry and falls back to oral.
	f, ok = TargetFactor(Oxycodone, IV)
	require.True(t, ok)
	assert.Equal(t, 1.5, f)

	_, ok = TargetFactor(Methadone, Oral)
	assert.False(t, ok)
	_, ok = TargetFactor(Drug("aspirin"), Oral)
	assert.False(t, ok)
}

func TestMMEFactors(t *testing.T) {
	expected := map[Drug]float64{
		Morphine: 1, Oxycodone: 1.5, Hydrocodone: 1, Hydromorphone: 4,
		Oxymorphone: 3, Codeine: 0.15, Tramadol: 0.1, Tapentadol: 0.4,
	}
	for d, want := range expected {
		got, ok := MMEFactor(d)
		require.True(t, ok, d)
		assert.Equal(t, want, got, d)
	}
	for _, d := range []Drug{FentanylTDS, Methadone, Buprenorphine} {
		_, ok := MMEFactor(d)
		assert.False(t, ok, d)
	}
}
