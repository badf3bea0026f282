package opioid

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotateToTarget_OralHydromorphone(t *testing.T) {
	res := RotateToTarget(90, Hydromorphone, Oral, RotationOptions{CrossTolerancePct: 25})

	require.True(t, res.OK())
	require.NotNil(t, res.Range)
	assert.Nil(t, res.FentanylPatchMcgHr)
	assert.InDelta(t, 67.5, res.AdjustedOME, 1e-9)
	assert.Equal(t, 4.0, res.Factor)
	assert.InDelta(t, 16.875, res.TargetDailyMg, 1e-9)
	assert.Equal(t, DoseRange{Low: 15.2, High: 18.6}, *res.Range)

	require.Len(t, res.Notes, 3)
	assert.Equal(t, "1) Cross-tolerance reduction: 90.0 OME × (1 - 25%) = 67.5 OME/day", res.Notes[0])
	assert.Contains(t, res.Notes[1], "2) Target conversion factor is 4.")
	assert.Equal(t, "3) Suggested daily dose range: 15.2–18.6 mg/day.", res.Notes[2])
}

func TestRotateToTarget_Frail(t *testing.T) {
	res := RotateToTarget(90, Hydromorphone, Oral, RotationOptions{CrossTolerancePct: 25, Frail: true})

	require.NotNil(t, res.Range)
	assert.Equal(t, DoseRange{Low: 12.7, High: 15.2}, *res.Range)
	assert.Contains(t, res.Notes, "Frail/Elderly: Range uses a more conservative 75% to 90% of calculated dose.")
}

func TestRotateToTarget_RouteFallsBackToOral(t *testing.T) {
	iv := RotateToTarget(90, Morphine, IV, RotationOptions{})
	require.True(t, iv.OK())
	assert.Equal(t, 3.0, iv.Factor)

	fallback := RotateToTarget(90, Hydrocodone, IV, RotationOptions{})
	require.True(t, fallback.OK())
	assert.Equal(t, 1.0, fallback.Factor)
}

func TestRotateToTarget_Fentanyl(t *testing.T) {
	res := RotateToTarget(90, FentanylTDS, Transdermal, RotationOptions{})

	require.True(t, res.OK())
	assert.Nil(t, res.Range)
	require.NotNil(t, res.FentanylPatchMcgHr)
	assert.Equal(t, PatchRange{Low: 25, High: 37}, *res.FentanylPatchMcgHr)
	assert.Contains(t, res.Notes[len(res.Notes)-1], "2) Fentanyl conversion: ~25–37 mcg/h patch.")
	assert.Contains(t, res.Notes[len(res.Notes)-1], "12, 25, 37, 50, 62, 75, 100")

	frail := RotateToTarget(90, FentanylTDS, Transdermal, RotationOptions{Frail: true})
	require.NotNil(t, frail.FentanylPatchMcgHr)
	assert.Equal(t, PatchRange{Low: 25, High: 25}, *frail.FentanylPatchMcgHr)
	assert.Contains(t, frail.Notes, "Frail/Elderly: High end of patch range reduced by 25%.")
}

func TestRotateToTarget_Nonlinear(t *testing.T) {
	for _, d := range []Drug{Methadone, Buprenorphine} {
		res := RotateToTarget(90, d, Oral, RotationOptions{})
		assert.Equal(t, StatusUnsupported, res.Status, d)
		assert.Nil(t, res.Range, d)
		assert.Nil(t, res.FentanylPatchMcgHr, d)
		assert.Contains(t, res.Notes[len(res.Notes)-1], "specialist guidance", d)
	}
}

func TestRotateToTarget_MissingFactor(t *testing.T) {
	res := RotateToTarget(90, Drug("aspirin"), Oral, RotationOptions{})

	assert.Equal(t, StatusMissingReferenceData, res.Status)
	assert.Nil(t, res.Range)
	assert.Equal(t, "Error: Missing conversion factor for aspirin PO.", res.Notes[len(res.Notes)-1])
}

func TestRotateToTarget_ClampsCrossTolerance(t *testing.T) {
	high := RotateToTarget(100, Morphine, Oral, RotationOptions{CrossTolerancePct: 120})
	assert.InDelta(t, 5.0, high.AdjustedOME, 1e-9)

	negative := RotateToTarget(100, Morphine, Oral, RotationOptions{CrossTolerancePct: -10})
	assert.InDelta(t, 100.0, negative.AdjustedOME, 1e-9)
}

func TestRotateToTarget_MoreReductionNeverIncreasesDose(t *testing.T) {
	prev := RotateToTarget(120, Oxycodone, Oral, RotationOptions{CrossTolerancePct: 0})
	for pct := 5.0; pct <= MaxCrossTolerancePct; pct += 5 {
		cur := RotateToTarget(120, Oxycodone, Oral, RotationOptions{CrossTolerancePct: pct})
		require.NotNil(t, cur.Range)
		assert.LessOrEqual(t, cur.Range.High, prev.Range.High, "pct %v", pct)
		assert.LessOrEqual(t, cur.Range.Low, cur.Range.High)
		prev = cur
	}
}

func TestRotateToTarget_RoundTripRecoversOME(t *testing.T) {
	sources := []struct {
		drug Drug
		dose float64
	}{
		{Morphine, 90}, {Oxycodone, 40}, {Hydrocodone, 60}, {Hydromorphone, 24},
		{Oxymorphone, 20}, {Codeine, 240}, {Tramadol, 300}, {Tapentadol, 200},
	}
	targets := []struct {
		drug  Drug
		route Route
	}{
		{Morphine, Oral}, {Morphine, IV},
		{Hydromorphone, Oral}, {Hydromorphone, IV},
		{Oxycodone, Oral}, {Hydrocodone, Oral}, {Oxymorphone, Oral},
		{Codeine, Oral}, {Tramadol, Oral}, {Tapentadol, Oral},
	}

	for _, src := range sources {
		ome, out := MMEOf(src.drug, Oral, src.dose)
		require.True(t, out.OK(), out.Reason)

		for _, dst := range targets {
			res := RotateToTarget(ome, dst.drug, dst.route, RotationOptions{CrossTolerancePct: 0})
			require.True(t, res.OK(), res.Reason)
			assert.InDelta(t, ome, res.TargetDailyMg*res.Factor, 1e-9, "%s -> %s %s", src.drug, dst.drug, dst.route)

			if dst.route == Oral {
				back, out := MMEOf(dst.drug, Oral, res.TargetDailyMg)
				require.True(t, out.OK(), out.Reason)
				assert.InDelta(t, ome, back, 1e-9, "%s -> %s", src.drug, dst.drug)
			}
		}
	}
}

func TestRotateToTarget_FrailWithinStandard(t *testing.T) {
	targets := []struct {
		drug  Drug
		route Route
	}{
		{Morphine, Oral}, {Morphine, IV},
		{Hydromorphone, Oral}, {Hydromorphone, IV},
		{Oxycodone, Oral}, {Hydrocodone, Oral}, {Oxymorphone, Oral},
		{Codeine, Oral}, {Tramadol, Oral}, {Tapentadol, Oral},
		{FentanylTDS, Transdermal},
	}

	for _, tt := range targets {
		for _, ome := range []float64{5, 30, 67.5, 90, 150, 400, 1000} {
			for _, pct := range []float64{0, 25, 50} {
				std := RotateToTarget(ome, tt.drug, tt.route, RotationOptions{CrossTolerancePct: pct})
				frail := RotateToTarget(ome, tt.drug, tt.route, RotationOptions{CrossTolerancePct: pct, Frail: true})
				require.True(t, std.OK(), std.Reason)
				require.True(t, frail.OK(), frail.Reason)

				msg := fmt.Sprintf("%s %s ome=%v pct=%v", tt.drug, tt.route, ome, pct)
				if tt.drug == FentanylTDS {
					require.NotNil(t, frail.FentanylPatchMcgHr, msg)
					assert.LessOrEqual(t, frail.FentanylPatchMcgHr.Low, std.FentanylPatchMcgHr.Low, msg)
					assert.LessOrEqual(t, frail.FentanylPatchMcgHr.High, std.FentanylPatchMcgHr.High, msg)
					continue
				}
				require.NotNil(t, frail.Range, msg)
				assert.LessOrEqual(t, frail.Range.Low, std.Range.Low, msg)
				assert.LessOrEqual(t, frail.Range.High, std.Range.High, msg)
			}
		}
	}
}
