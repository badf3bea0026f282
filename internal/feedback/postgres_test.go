package feedback

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{
	"id", "calculation", "input_summary", "suggested_text", "ordered_text",
	"clinician_agreed", "notes", "created_at", "updated_at",
}

func newMockPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing()
	store, err := NewPostgresStore(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return store, mock
}

func TestNewPostgresStore_RequiresDB(t *testing.T) {
	_, err := NewPostgresStore(context.Background(), nil)
	assert.Error(t, err)
}

func TestNewPostgresStore_PingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	_, err = NewPostgresStore(context.Background(), db)
	assert.ErrorContains(t, err, "failed to ping database")
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	fb := rotationFeedback()
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO feedback .* ON CONFLICT \(calculation, input_summary\) DO UPDATE SET .* RETURNING id, created_at`).
		WithArgs("rotate_opioid", fb.InputSummary, fb.SuggestedText, fb.OrderedText,
			true, fb.Notes, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(42, created))

	require.NoError(t, store.Save(context.Background(), fb))
	assert.Equal(t, int64(42), fb.ID)
	assert.Equal(t, created, fb.CreatedAt)
	assert.False(t, fb.UpdatedAt.IsZero())
}

func TestPostgresStore_SaveInvalidSkipsDatabase(t *testing.T) {
	store, _ := newMockPostgresStore(t)
	fb := rotationFeedback()
	fb.SuggestedText = ""

	assert.ErrorIs(t, store.Save(context.Background(), fb), ErrInvalidFeedback)
}

func TestPostgresStore_SaveError(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO feedback`).WillReturnError(errors.New("deadlock detected"))

	err := store.Save(context.Background(), rotationFeedback())
	assert.ErrorContains(t, err, "failed to save feedback")
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM feedback WHERE calculation = \$1 AND input_summary = \$2`).
		WithArgs("prn_suggestion", "OME 90 moderate").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(7, "prn_suggestion", "OME 90 moderate", "Oxy 5 po q4h PRN", "", false, "", now, now))

	fb, err := store.Get(context.Background(), CalculationPRN, "OME 90 moderate")
	require.NoError(t, err)
	require.NotNil(t, fb)
	assert.Equal(t, int64(7), fb.ID)
	assert.Equal(t, CalculationPRN, fb.Calculation)
	assert.Equal(t, "Oxy 5 po q4h PRN", fb.SuggestedText)
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM feedback WHERE`).WillReturnError(sql.ErrNoRows)

	fb, err := store.Get(context.Background(), CalculationPRN, "missing")
	assert.NoError(t, err)
	assert.Nil(t, fb)
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM feedback ORDER BY created_at DESC, id DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 20).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(2, "pain_plan", "b", "plan b", "", true, "", now, now).
			AddRow(1, "pain_plan", "a", "plan a", "", true, "", now.Add(-time.Hour), now))

	list, err := store.List(context.Background(), 10, 20)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "plan b", list[0].SuggestedText)
}

func TestPostgresStore_CountAndDelete(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM feedback`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(`DELETE FROM feedback WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, store.Delete(ctx, 3))
}

func TestPostgresStore_ImportSkipsExisting(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM feedback WHERE`).
		WithArgs("rotate_opioid", "seen").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(1, "rotate_opioid", "seen", "x", "", true, "", now, now))
	mock.ExpectQuery(`SELECT .* FROM feedback WHERE`).
		WithArgs("rotate_opioid", "new").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO feedback`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(2, now))

	data := `{"version":"1.0","feedback":[
		{"calculation":"rotate_opioid","input_summary":"seen","suggested_text":"x"},
		{"calculation":"rotate_opioid","input_summary":"new","suggested_text":"y"}
	]}`
	imported, skipped, err := store.ImportJSON(context.Background(), bytes.NewBufferString(data))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)
}
