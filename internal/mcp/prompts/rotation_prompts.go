package prompts

import (
	"context"
	"fmt"
	"strings"
)

// RotationReviewPrompt guides an agent through an opioid rotation.
type RotationReviewPrompt struct{}

func (RotationReviewPrompt) GetPromptInfo() PromptInfo {
	return PromptInfo{
		Name:        "opioid_rotation_review",
		Description: "Step-by-step opioid rotation: total the home regimen, convert to the target, then size PRN doses",
		Arguments: []ArgumentInfo{
			{Name: "home_regimen", Description: "Current opioids with dose, route and interval", Required: true},
			{Name: "target", Description: "Target opioid and route, e.g. hydromorphone IV", Required: true},
			{Name: "patient_factors", Description: "Frailty, renal or hepatic impairment, opioid naive status"},
		},
	}
}

func (p RotationReviewPrompt) RenderPrompt(_ context.Context, args map[string]string) (*RenderedPrompt, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Review an opioid rotation.\n\nHome regimen: %s\nTarget: %s\n", args["home_regimen"], args["target"])
	if f := strings.TrimSpace(args["patient_factors"]); f != "" {
		fmt.Fprintf(&b, "Patient factors: %s\n", f)
	}
	b.WriteString(`
Steps:
1. Call calculate_home_ome with each home medication. Report any entry whose status is not "ok" and ask for the missing detail.
2. Call rotate_opioid for the target. Use cross_tolerance_pct 25 to 50 unless told otherwise, and set frail when patient factors warrant it.
3. Call prn_table for moderate, severe and breakthrough tiers on the same OME.
4. Check the acetaminophen line in the home regimen result before suggesting combination tablets.

Methadone and buprenorphine conversions are not linear; if either appears, say so and recommend specialist input instead of a number.
Quote the calculator's notes and trace lines verbatim. These are suggestions for clinician review, not orders.
`)
	info := p.GetPromptInfo()
	return &RenderedPrompt{Name: info.Name, Description: info.Description, Content: b.String()}, nil
}

// PainPlanPrompt drafts the assessment-and-plan note.
type PainPlanPrompt struct{}

func (PainPlanPrompt) GetPromptInfo() PromptInfo {
	return PromptInfo{
		Name:        "pain_plan_note",
		Description: "Draft the pain management plan section of a progress note from the calculator output",
		Arguments: []ArgumentInfo{
			{Name: "home_regimen", Description: "Current opioids with dose, route and interval", Required: true},
			{Name: "scheduled", Description: "Scheduled opioid to start, if any"},
			{Name: "adjuncts", Description: "Multimodal adjuncts to include: general, neuropathic, spasm, localized"},
		},
	}
}

func (p PainPlanPrompt) RenderPrompt(_ context.Context, args map[string]string) (*RenderedPrompt, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Draft the pain management plan.\n\nHome regimen: %s\n", args["home_regimen"])
	scheduled := strings.TrimSpace(args["scheduled"])
	if scheduled != "" {
		fmt.Fprintf(&b, "Scheduled opioid: %s\n", scheduled)
	} else {
		b.WriteString("Scheduled opioid: none requested\n")
	}
	if a := strings.TrimSpace(args["adjuncts"]); a != "" {
		fmt.Fprintf(&b, "Adjuncts: %s\n", a)
	}
	b.WriteString(`
Call pain_plan with the home medications, the scheduled selection and PRN selections for each severity tier.
Return the plan text exactly as produced, then list any calculation that came back without status "ok".
`)
	info := p.GetPromptInfo()
	return &RenderedPrompt{Name: info.Name, Description: info.Description, Content: b.String()}, nil
}
