package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"concert-manager/models"
	"concert-manager/schemas"
	"concert-manager/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventBandColumns = []string{"id", "event_id", "band_id", "setlist", "rating", "mainAct", "runningOrder", "notes"}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func newController() EventBandController {
	return EventBandController{Validator: utils.NewJSONSchemaValidator(schemas.FS)}
}

func serve(h http.HandlerFunc, method, target, id, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if id != "-" {
		req = mux.SetURLVars(req, map[string]string{"id": id})
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body models.Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

// ---------------------------------------------------------------------------
// List all
// ---------------------------------------------------------------------------

func TestGetEventBands(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(selectEventBands).WillReturnRows(
		sqlmock.NewRows(eventBandColumns).
			AddRow(int64(1), int64(5), int64(12), "Song A, Song B", 8.5, true, int64(1), "headliner").
			AddRow(int64(2), int64(5), int64(13), nil, nil, false, nil, nil),
	)

	rec := serve(newController().GetEventBands(db), http.MethodGet, "/event-bands", "-", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"id":1,"event_id":5,"band_id":12,"setlist":"Song A, Song B","rating":8.5,"mainAct":true,"runningOrder":1,"notes":"headliner"},
		{"id":2,"event_id":5,"band_id":13,"setlist":null,"rating":null,"mainAct":false,"runningOrder":null,"notes":null}
	]`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEventBands_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(selectEventBands).WillReturnRows(sqlmock.NewRows(eventBandColumns))

	rec := serve(newController().GetEventBands(db), http.MethodGet, "/event-bands", "-", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetEventBands_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(selectEventBands).WillReturnError(errors.New("table EventBands doesn't exist"))

	rec := serve(newController().GetEventBands(db), http.MethodGet, "/event-bands", "-", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error fetching Event-Bands", message(t, rec))
	assert.NotContains(t, rec.Body.String(), "doesn't exist")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEventBands_ConnectionUnavailable(t *testing.T) {
	db, _ := newMockDB(t)
	_ = db.Close()

	rec := serve(newController().GetEventBands(db), http.MethodGet, "/event-bands", "-", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error fetching Event-Bands", message(t, rec))
}

// ---------------------------------------------------------------------------
// Invalid ids are rejected before any query
// ---------------------------------------------------------------------------

func TestIDRoutes_RejectInvalidID(t *testing.T) {
	c := newController()
	ids := []string{"", "abc", "1.5", "12abc", "-"}

	for _, id := range ids {
		db, mock := newMockDB(t)
		handlers := map[string]http.HandlerFunc{
			"count":   c.CountEventBandsByEvent(db),
			"details": c.GetEventBandDetailsByEvent(db),
			"get":     c.GetEventBand(db),
			"update":  c.UpdateEventBand(db),
		}
		for name, h := range handlers {
			t.Run(name+"/"+id, func(t *testing.T) {
				rec := serve(h, http.MethodGet, "/event-bands/x", id, `{"event_id": 1, "band_id": 2}`)

				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Equal(t, "Invalid ID format", message(t, rec))
			})
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	}
}

// ---------------------------------------------------------------------------
// Count by event
// ---------------------------------------------------------------------------

func TestCountEventBandsByEvent(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(countEventBandsByEvent).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(int64(3)))

	rec := serve(newController().CountEventBandsByEvent(db), http.MethodGet, "/event-bands/event/5/count", "5", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":3}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountEventBandsByEvent_NullAggregate(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(countEventBandsByEvent).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(nil))

	rec := serve(newController().CountEventBandsByEvent(db), http.MethodGet, "/event-bands/event/5/count", "5", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0}`, rec.Body.String())
}

func TestCountEventBandsByEvent_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(countEventBandsByEvent).WithArgs(5).WillReturnError(errors.New("connection reset"))

	rec := serve(newController().CountEventBandsByEvent(db), http.MethodGet, "/event-bands/event/5/count", "5", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error fetching Event-Bands", message(t, rec))
}

// ---------------------------------------------------------------------------
// Detailed list by event
// ---------------------------------------------------------------------------

func TestGetEventBandDetailsByEvent(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(selectEventBandDetailsByEvent).WithArgs(5).WillReturnRows(
		sqlmock.NewRows([]string{"event_band_id", "band_id", "band_name", "mainAct", "runningOrder", "rating", "notes"}).
			AddRow(int64(4), int64(20), "Amber Lights", false, int64(1), nil, nil).
			AddRow(int64(3), int64(21), "Zinc", false, int64(1), 7.0, "short set").
			AddRow(int64(1), int64(12), "The Headliners", true, int64(2), 9.25, nil),
	)

	rec := serve(newController().GetEventBandDetailsByEvent(db), http.MethodGet, "/event-bands/event/5", "5", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var details []models.EventBandDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	require.Len(t, details, 3)
	assert.Equal(t, []string{"Amber Lights", "Zinc", "The Headliners"},
		[]string{details[0].BandName, details[1].BandName, details[2].BandName})
	assert.True(t, details[2].MainAct)
	assert.Equal(t, 12, details[2].BandID)
	assert.JSONEq(t, `{"event_band_id":1,"band_id":12,"band_name":"The Headliners","mainAct":true,"runningOrder":2,"rating":9.25,"notes":null}`,
		mustJSON(t, details[2]))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectEventBandDetailsByEvent_Ordering(t *testing.T) {
	assert.Contains(t, selectEventBandDetailsByEvent, "JOIN ConcertBands b ON b.id = eb.band_id")
	assert.Contains(t, selectEventBandDetailsByEvent, "ORDER BY eb.runningOrder ASC, b.name ASC")
}

func TestGetEventBandDetailsByEvent_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(selectEventBandDetailsByEvent).WithArgs(5).WillReturnError(errors.New("boom"))

	rec := serve(newController().GetEventBandDetailsByEvent(db), http.MethodGet, "/event-bands/event/5", "5", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

// ---------------------------------------------------------------------------
// Get by id
// ---------------------------------------------------------------------------

func TestGetEventBand(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(selectEventBandByID).WithArgs(7).WillReturnRows(
		sqlmock.NewRows(eventBandColumns).AddRow(int64(7), int64(5), int64(12), nil, 6.5, false, int64(3), "opener"),
	)

	rec := serve(newController().GetEventBand(db), http.MethodGet, "/event-bands/7", "7", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"event_id":5,"band_id":12,"setlist":null,"rating":6.5,"mainAct":false,"runningOrder":3,"notes":"opener"}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEventBand_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(selectEventBandByID).WithArgs(404).WillReturnRows(sqlmock.NewRows(eventBandColumns))

	rec := serve(newController().GetEventBand(db), http.MethodGet, "/event-bands/404", "404", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Event-Band not found", message(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEventBand_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(selectEventBandByID).WithArgs(7).WillReturnError(errors.New("lock wait timeout"))

	rec := serve(newController().GetEventBand(db), http.MethodGet, "/event-bands/7", "7", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error fetching Event-Bands", message(t, rec))
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCreateEventBand_AppliesDefaults(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(insertEventBand).
		WithArgs(5, 12, nil, nil, true, nil, nil).
		WillReturnResult(sqlmock.NewResult(42, 1))

	rec := serve(newController().CreateEventBand(db), http.MethodPost, "/event-bands", "-",
		`{"event_id": 5, "band_id": 12, "mainAct": true}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"message":"Event-Band created successfully","venueId":"42"}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEventBand_AllFields(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(insertEventBand).
		WithArgs(5, 12, "Intro, Hit", 8.75, false, 2, "bring earplugs").
		WillReturnResult(sqlmock.NewResult(43, 1))

	rec := serve(newController().CreateEventBand(db), http.MethodPost, "/event-bands", "-",
		`{"event_id": 5, "band_id": 12, "setlist": "Intro, Hit", "rating": 8.75, "runningOrder": 2, "notes": "bring earplugs"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEventBand_WholeFloatIDs(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(insertEventBand).
		WithArgs(5, 12, nil, nil, false, 3, nil).
		WillReturnResult(sqlmock.NewResult(44, 1))

	rec := serve(newController().CreateEventBand(db), http.MethodPost, "/event-bands", "-",
		`{"event_id": 5.0, "band_id": 12, "runningOrder": 3.0}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEventBand_InvalidBody(t *testing.T) {
	bodies := map[string]string{
		"missing event_id": `{"band_id": 12}`,
		"missing band_id":  `{"event_id": 5}`,
		"wrong type":       `{"event_id": "five", "band_id": 12}`,
		"not json":         `{"event_id": 5,`,
		"empty":            ``,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			db, mock := newMockDB(t)

			rec := serve(newController().CreateEventBand(db), http.MethodPost, "/event-bands", "-", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid data. See server logs for details.", message(t, rec))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreateEventBand_NoRowInserted(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(insertEventBand).WillReturnResult(sqlmock.NewResult(0, 0))

	rec := serve(newController().CreateEventBand(db), http.MethodPost, "/event-bands", "-",
		`{"event_id": 5, "band_id": 12}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Failed to create Event-Band in database", message(t, rec))
}

func TestCreateEventBand_InsertError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(insertEventBand).WillReturnError(errors.New("foreign key constraint fails"))

	rec := serve(newController().CreateEventBand(db), http.MethodPost, "/event-bands", "-",
		`{"event_id": 5, "band_id": 999}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error creating Event-Band", message(t, rec))
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestUpdateEventBand_ResetsOmittedFields(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockEventBandByID).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(updateEventBand).
		WithArgs(5, 13, nil, nil, false, nil, "moved to second stage", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := serve(newController().UpdateEventBand(db), http.MethodPut, "/event-bands/7", "7",
		`{"event_id": 5, "band_id": 13, "notes": "moved to second stage"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Event-Band updated successfully"}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEventBand_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockEventBandByID).WithArgs(404).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	rec := serve(newController().UpdateEventBand(db), http.MethodPut, "/event-bands/404", "404",
		`{"event_id": 5, "band_id": 12}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Event-Band with ID [ 404 ] not found", message(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEventBand_InvalidBody(t *testing.T) {
	db, mock := newMockDB(t)

	rec := serve(newController().UpdateEventBand(db), http.MethodPut, "/event-bands/7", "7", `{"band_id": 12}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid data. See server logs for details.", message(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEventBand_NoRowUpdated(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockEventBandByID).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(updateEventBand).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	rec := serve(newController().UpdateEventBand(db), http.MethodPut, "/event-bands/7", "7",
		`{"event_id": 5, "band_id": 12}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Failed to update Event-Band", message(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEventBand_UpdateError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockEventBandByID).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(updateEventBand).WillReturnError(errors.New("deadlock found"))
	mock.ExpectRollback()

	rec := serve(newController().UpdateEventBand(db), http.MethodPut, "/event-bands/7", "7",
		`{"event_id": 5, "band_id": 12}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Database error", message(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEventBand_BeginError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	rec := serve(newController().UpdateEventBand(db), http.MethodPut, "/event-bands/7", "7",
		`{"event_id": 5, "band_id": 12}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
