// Package feedback stores clinician feedback on calculator suggestions: what
// the tool suggested, what was actually ordered and whether the clinician
// agreed. Entries are keyed by calculation and input summary so repeated
// feedback on the same case updates one row.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Calculation names the calculator operation the feedback refers to.
type Calculation string

const (
	CalculationHomeOME   Calculation = "calculate_home_ome"
	CalculationRotate    Calculation = "rotate_opioid"
	CalculationPRN       Calculation = "prn_suggestion"
	CalculationPRNTable  Calculation = "prn_table"
	CalculationQuick     Calculation = "quick_convert"
	CalculationScheduled Calculation = "scheduled_regimen"
	CalculationPlan      Calculation = "pain_plan"
)

var calculations = map[Calculation]bool{
	CalculationHomeOME:   true,
	CalculationRotate:    true,
	CalculationPRN:       true,
	CalculationPRNTable:  true,
	CalculationQuick:     true,
	CalculationScheduled: true,
	CalculationPlan:      true,
}

// IsValid reports whether c names a calculator operation.
func (c Calculation) IsValid() bool {
	return calculations[c]
}

// ErrInvalidFeedback is returned by Validate.
var ErrInvalidFeedback = errors.New("invalid feedback")

// Feedback is a clinician's response to one calculator suggestion.
type Feedback struct {
	ID              int64       `json:"id,omitempty"`
	Calculation     Calculation `json:"calculation"`
	InputSummary    string      `json:"input_summary"`          // e.g. "oxycodone 10 mg PO q4h -> hydromorphone IV"
	SuggestedText   string      `json:"suggested_text"`         // what the calculator printed
	OrderedText     string      `json:"ordered_text,omitempty"` // what was actually ordered
	ClinicianAgreed bool        `json:"clinician_agreed"`
	Notes           string      `json:"notes,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Validate checks the required fields.
func (f *Feedback) Validate() error {
	switch {
	case !f.Calculation.IsValid():
		return fmt.Errorf("%w: unknown calculation %q", ErrInvalidFeedback, f.Calculation)
	case strings.TrimSpace(f.InputSummary) == "":
		return fmt.Errorf("%w: input_summary is required", ErrInvalidFeedback)
	case strings.TrimSpace(f.SuggestedText) == "":
		return fmt.Errorf("%w: suggested_text is required", ErrInvalidFeedback)
	}
	return nil
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores feedback, updating the existing entry for the same
	// calculation and input summary.
	Save(ctx context.Context, feedback *Feedback) error

	// Get returns the entry for a calculation and input summary, or nil.
	Get(ctx context.Context, calculation Calculation, inputSummary string) (*Feedback, error)

	// List returns entries newest first.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	Count(ctx context.Context) (int64, error)

	Delete(ctx context.Context, id int64) error

	// ExportJSON writes every entry in the export format.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON loads an export. Entries that already exist are skipped.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Export is the JSON export format.
type Export struct {
	Version    string      `json:"version"`
	ExportID   string      `json:"export_id"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}

// ExportVersion is written into every export.
const ExportVersion = "1.0"
