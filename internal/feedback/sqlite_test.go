package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "feedback.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func rotationFeedback() *Feedback {
	return &Feedback{
		Calculation:     CalculationRotate,
		InputSummary:    "OME 90 -> hydromorphone PO, CT 25%",
		SuggestedText:   "Hydromorphone 15.2–18.6 mg/day PO",
		OrderedText:     "Hydromorphone 2 mg PO q4h",
		ClinicianAgreed: true,
		Notes:           "Rounded down for renal function",
	}
}

func TestNewSQLiteStore_CreatesFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "feedback.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")
	assert.Equal(t, dbPath, store.Path())
	assert.NoError(t, store.Ping(context.Background()))
}

func TestSQLiteStore_SaveAssignsIDAndTimestamps(t *testing.T) {
	store := newTestSQLiteStore(t)
	fb := rotationFeedback()

	require.NoError(t, store.Save(context.Background(), fb))

	assert.NotZero(t, fb.ID)
	assert.False(t, fb.CreatedAt.IsZero())
	assert.False(t, fb.UpdatedAt.IsZero())
}

func TestSQLiteStore_SaveUpsertsOnKey(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	first := rotationFeedback()
	require.NoError(t, store.Save(ctx, first))

	again := rotationFeedback()
	again.ClinicianAgreed = false
	again.OrderedText = "Hydromorphone 1 mg PO q4h"
	require.NoError(t, store.Save(ctx, again))

	assert.Equal(t, first.ID, again.ID)
	assert.WithinDuration(t, first.CreatedAt, again.CreatedAt, time.Second)

	got, err := store.Get(ctx, CalculationRotate, first.InputSummary)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.ClinicianAgreed)
	assert.Equal(t, "Hydromorphone 1 mg PO q4h", got.OrderedText)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSQLiteStore_SameSummaryDifferentCalculation(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	rotate := rotationFeedback()
	require.NoError(t, store.Save(ctx, rotate))

	quick := rotationFeedback()
	quick.Calculation = CalculationQuick
	require.NoError(t, store.Save(ctx, quick))

	assert.NotEqual(t, rotate.ID, quick.ID)
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStore_SaveRejectsInvalid(t *testing.T) {
	store := newTestSQLiteStore(t)

	fb := rotationFeedback()
	fb.Calculation = "titrate_infusion"

	err := store.Save(context.Background(), fb)
	assert.ErrorIs(t, err, ErrInvalidFeedback)
	assert.Zero(t, fb.ID)
}

func TestSQLiteStore_GetNotFound(t *testing.T) {
	store := newTestSQLiteStore(t)

	got, err := store.Get(context.Background(), CalculationPRN, "nothing saved")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ListNewestFirstWithPagination(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		fb := rotationFeedback()
		fb.InputSummary = fmt.Sprintf("OME %d -> hydromorphone PO", 60+i*30)
		require.NoError(t, store.Save(ctx, fb))
		time.Sleep(5 * time.Millisecond)
	}

	page1, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "OME 180 -> hydromorphone PO", page1[0].InputSummary)

	page3, err := store.List(ctx, 2, 4)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, "OME 60 -> hydromorphone PO", page3[0].InputSummary)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	fb := rotationFeedback()
	require.NoError(t, store.Save(ctx, fb))
	require.NoError(t, store.Delete(ctx, fb.ID))

	got, err := store.Get(ctx, fb.Calculation, fb.InputSummary)
	assert.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, store.Delete(ctx, 9999), "missing IDs are ignored")
}

func TestSQLiteStore_ExportJSON(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, rotationFeedback()))

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf))

	var export Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, ExportVersion, export.Version)
	assert.NotEmpty(t, export.ExportID)
	assert.Equal(t, 1, export.Count)
	require.Len(t, export.Feedback, 1)
	assert.Equal(t, "Hydromorphone 15.2–18.6 mg/day PO", export.Feedback[0].SuggestedText)
}

func TestSQLiteStore_ExportEmpty(t *testing.T) {
	store := newTestSQLiteStore(t)

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(context.Background(), &buf))
	assert.Contains(t, buf.String(), `"feedback": []`)
}

func TestSQLiteStore_ImportJSON(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	existing := rotationFeedback()
	require.NoError(t, store.Save(ctx, existing))

	data := `{
		"version": "1.0",
		"count": 4,
		"feedback": [
			{
				"calculation": "rotate_opioid",
				"input_summary": "OME 90 -> hydromorphone PO, CT 25%",
				"suggested_text": "overwritten?",
				"clinician_agreed": false
			},
			{
				"calculation": "prn_suggestion",
				"input_summary": "OME 300 moderate oxycodone PO q4h",
				"suggested_text": "Oxy 5 po q4h PRN",
				"clinician_agreed": true
			},
			{
				"calculation": "pain_plan",
				"input_summary": "OME 120 plan",
				"suggested_text": "# Pain Management",
				"notes": "Added lidocaine patch"
			},
			{
				"calculation": "unknown_tool",
				"input_summary": "x",
				"suggested_text": "y"
			}
		]
	}`

	imported, skipped, err := store.ImportJSON(ctx, bytes.NewReader([]byte(data)))
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	assert.Equal(t, 2, skipped)

	kept, err := store.Get(ctx, CalculationRotate, existing.InputSummary)
	require.NoError(t, err)
	assert.Equal(t, existing.SuggestedText, kept.SuggestedText, "existing entries are not overwritten")

	plan, err := store.Get(ctx, CalculationPlan, "OME 120 plan")
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, "Added lidocaine patch", plan.Notes)
}

func TestSQLiteStore_ImportRoundTrip(t *testing.T) {
	src := newTestSQLiteStore(t)
	dst := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, calc := range []Calculation{CalculationRotate, CalculationScheduled, CalculationPRNTable} {
		fb := rotationFeedback()
		fb.Calculation = calc
		require.NoError(t, src.Save(ctx, fb))
	}

	var buf bytes.Buffer
	require.NoError(t, src.ExportJSON(ctx, &buf))

	imported, skipped, err := dst.ImportJSON(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, imported)
	assert.Zero(t, skipped)
}

func TestSQLiteStore_ImportInvalidJSON(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, _, err := store.ImportJSON(context.Background(), bytes.NewReader([]byte("{not json")))
	assert.Error(t, err)
}
