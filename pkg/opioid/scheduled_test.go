package opioid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildScheduledRegimen_IVHydromorphone(t *testing.T) {
	reg := BuildScheduledRegimen(90, Hydromorphone, IV, 4, ScheduledOptions{
		RotationOptions: RotationOptions{CrossTolerancePct: 25},
	})

	require.True(t, reg.OK(), reg.Reason)
	assert.Equal(t, 90.0, reg.FromOME)
	assert.Equal(t, 6, reg.DosesPerDay)
	require.NotNil(t, reg.PerDose)
	assert.Equal(t, DoseRange{Low: 0.6, High: 0.8}, *reg.PerDose)
	assert.Equal(t, "Hydromorphone 0.6–0.8 mg IV/SC q4h", reg.Text)
	assert.Equal(t, "1) Total home OME ≈ 90.0 OME/day", reg.Trace[0])
	assert.Equal(t, "2) Intensity adjust: 90.0 × (1 + 0%) = 90.0 OME/day", reg.Trace[1])
	assert.Contains(t, reg.Trace[len(reg.Trace)-1], "4) Per dose")
}

func TestBuildScheduledRegimen_Intensity(t *testing.T) {
	up := BuildScheduledRegimen(90, Morphine, Oral, 4, ScheduledOptions{IntensityPct: 200})
	assert.Equal(t, 180.0, up.FromOME)

	down := BuildScheduledRegimen(90, Morphine, Oral, 4, ScheduledOptions{IntensityPct: -80})
	assert.Equal(t, 45.0, down.FromOME)
}

func TestBuildScheduledRegimen_Patch(t *testing.T) {
	reg := BuildScheduledRegimen(90, FentanylTDS, Transdermal, 0, ScheduledOptions{})

	require.True(t, reg.OK())
	require.NotNil(t, reg.Patch)
	assert.Nil(t, reg.PerDose)
	assert.Equal(t, "Fentanyl (transdermal) 25–37 mcg/h patch q72h", reg.Text)
}

func TestBuildScheduledRegimen_NotCalculated(t *testing.T) {
	naive := BuildScheduledRegimen(90, Morphine, Oral, 4, ScheduledOptions{OpioidNaive: true})
	assert.Equal(t, StatusNeedsMoreInput, naive.Status)
	assert.Equal(t, "Scheduled regimen not calculated for opioid-naïve patient.", naive.Text)

	empty := BuildScheduledRegimen(0, Morphine, Oral, 4, ScheduledOptions{})
	assert.Equal(t, StatusNeedsMoreInput, empty.Status)

	noFreq := BuildScheduledRegimen(90, Morphine, Oral, 0, ScheduledOptions{})
	assert.Equal(t, StatusNeedsMoreInput, noFreq.Status)
	assert.Equal(t, "Select a scheduled frequency.", noFreq.Text)

	methadone := BuildScheduledRegimen(90, Methadone, Oral, 8, ScheduledOptions{})
	assert.Equal(t, StatusUnsupported, methadone.Status)
	assert.Contains(t, methadone.Text, "specialist guidance")
}

func TestClampIntensity(t *testing.T) {
	assert.Equal(t, MinIntensityPct, ClampIntensity(-90))
	assert.Equal(t, MaxIntensityPct, ClampIntensity(150))
	assert.Equal(t, 20.0, ClampIntensity(20))
}
