package opioid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPainPlan_Full(t *testing.T) {
	cont := true
	sched := BuildScheduledRegimen(90, Hydromorphone, IV, 4, ScheduledOptions{
		RotationOptions: RotationOptions{CrossTolerancePct: 25},
	})
	prn := SuggestPRNTable(300, []PRNSelection{
		{Severity: Moderate, Drug: Oxycodone, Route: Oral, FreqHours: 4},
		{Severity: Breakthrough, Drug: Hydromorphone, Route: IV, FreqHours: 2},
	}, PRNOptions{})

	plan := BuildPainPlan(PlanInput{
		Scheduled: &sched,
		HomeMedications: []HomeMedication{
			{Drug: Oxycodone, Route: Oral, Dose: 20, FreqHours: 12, ExtendedRelease: true},
			{Drug: Oxycodone, Route: Oral, Dose: 5, PRN: true, AvgPRNDosesPerDay: 2},
		},
		ContinueER: &cont,
		PRN:        prn,
		Adjuncts:   Adjuncts{General: true, Localized: true},
	})

	want := "# Pain Management\nPlan:\n" +
		"1. Continue Hydromorphone 0.6–0.8 mg IV/SC q4h + home Oxy ER/LA 20 mg PO q12h\n" +
		"2. For moderate, severe, and breakthrough pain:\n" +
		"> Moderate: Oxy 5 po q4h PRN\n" +
		"> Severe: —\n" +
		"> Breakthrough: HM 0.2–0.4 iv/sc q2h PRN\n" +
		"3. Multimodal regimen\n" +
		">  * Add scheduled Tylenol 650–1000 mg PO q6h or NSAIDs\n" +
		">  * Add Lidocaine 5% patch to affected areas up to 12 h/day\n"
	assert.Equal(t, want, plan)
}

func TestBuildPainPlan_ScheduledLine(t *testing.T) {
	hold := false
	held := BuildPainPlan(PlanInput{ContinueER: &hold})
	assert.Contains(t, held, "1. Scheduled Opioid: Held (home ER/LA held, no new basal ordered)\n")

	none := BuildPainPlan(PlanInput{})
	assert.Contains(t, none, "1. Scheduled Opioid: None / Not Calculated\n")
	assert.Contains(t, none, ">  * None selected\n")

	naive := BuildScheduledRegimen(0, Morphine, Oral, 4, ScheduledOptions{OpioidNaive: true})
	notCalculated := BuildPainPlan(PlanInput{Scheduled: &naive})
	assert.Contains(t, notCalculated, "1. Scheduled Opioid: None / Not Calculated\n")
}

func TestBuildPainPlan_FentanylHomeER(t *testing.T) {
	cont := true
	plan := BuildPainPlan(PlanInput{
		HomeMedications: []HomeMedication{{Drug: FentanylTDS, Route: Transdermal, Dose: 25, FreqHours: 72, ExtendedRelease: true}},
		ContinueER:      &cont,
	})
	assert.Contains(t, plan, "1. Continue home Fentanyl ER/LA 25 mcg/h Transdermal q72h\n")
}
